package forecast

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// FloatSeries is a float64 slice whose JSON form uses null for NaN, so
// tables with missing cells survive transport and caching.
type FloatSeries []float64

// MarshalJSON implements the json.Marshaler interface.
func (f FloatSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
		} else {
			buf.Write(strconv.AppendFloat(nil, v, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface; null becomes NaN.
func (f *FloatSeries) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FloatSeries, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*f = out
	return nil
}

// TableColumn is one named forecast column of a table, spanning the full
// timestamp axis: NaN on historical rows, forecast values (or NaN) on
// horizon rows.
type TableColumn struct {
	ID     AlgorithmID `json:"id"`
	Values FloatSeries `json:"values"`
}

// ForecastTable merges the original series with every produced forecast
// column, aligned by timestamp. The axis spans the full history plus
// horizon timestamps extended at the series' native granularity; historical
// rows carry only the original value. Tables are immutable after assembly.
type ForecastTable struct {
	Timestamps  []time.Time   `json:"timestamps"`
	Actual      FloatSeries   `json:"actual"` // NaN on forecast rows
	Columns     []TableColumn `json:"columns"`
	HistoryRows int           `json:"history_rows"`
}

// AssembleTable builds the forecast table from the dispatcher's outcomes,
// preserving their order for the output columns. Timestamps are generated
// by stepping the granularity forward from the last historical timestamp;
// no gaps, no realignment to calendar boundaries.
func AssembleTable(series *TimeSeries, horizon int, outcomes []Outcome) *ForecastTable {
	n := series.Len()
	total := n + horizon

	table := &ForecastTable{
		Timestamps:  make([]time.Time, total),
		Actual:      make(FloatSeries, total),
		HistoryRows: n,
	}

	for i, p := range series.Points {
		table.Timestamps[i] = p.Timestamp
		table.Actual[i] = p.Value
	}
	anchor := series.LastTimestamp()
	for h := 0; h < horizon; h++ {
		table.Timestamps[n+h] = series.Granularity.Step(anchor, h+1)
		table.Actual[n+h] = math.NaN()
	}

	for _, out := range outcomes {
		values := make([]float64, total)
		for i := 0; i < n; i++ {
			values[i] = math.NaN()
		}
		for h := 0; h < horizon; h++ {
			if h < len(out.Column) {
				values[n+h] = out.Column[h]
			} else {
				values[n+h] = math.NaN()
			}
		}
		table.Columns = append(table.Columns, TableColumn{ID: out.ID, Values: values})
	}
	return table
}

// Len returns the total number of rows (history plus horizon).
func (t *ForecastTable) Len() int { return len(t.Timestamps) }

// HistoryLen returns the number of historical rows.
func (t *ForecastTable) HistoryLen() int { return t.HistoryRows }

// Horizon returns the number of forecast rows.
func (t *ForecastTable) Horizon() int { return len(t.Timestamps) - t.HistoryRows }

// Column returns the column for an algorithm identifier.
func (t *ForecastTable) Column(id AlgorithmID) (TableColumn, bool) {
	for _, col := range t.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return TableColumn{}, false
}

// ForecastRowAt returns the index of the first forecast row whose timestamp
// is at or after target, or -1 when target lies beyond the table.
func (t *ForecastTable) ForecastRowAt(target time.Time) int {
	for i := t.HistoryRows; i < len(t.Timestamps); i++ {
		if !t.Timestamps[i].Before(target) {
			return i
		}
	}
	return -1
}
