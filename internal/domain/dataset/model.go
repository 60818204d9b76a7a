package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TypeMetrics holds per-equipment-type averages.
type TypeMetrics struct {
	AvgFlowrate    float64 `json:"avg_flowrate"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgTemperature float64 `json:"avg_temperature"`
}

// Summary is the aggregate computed by the backend for one dataset.
type Summary struct {
	TotalEquipment     int                    `json:"total_equipment"`
	AverageFlowrate    float64                `json:"average_flowrate"`
	AveragePressure    float64                `json:"average_pressure"`
	AverageTemperature float64                `json:"average_temperature"`
	MaxTemperature     *float64               `json:"max_temperature,omitempty"` // limited summaries only
	TypeDistribution   map[string]int         `json:"equipment_type_distribution,omitempty"`
	AvgMetricsPerType  map[string]TypeMetrics `json:"avg_metrics_per_type,omitempty"`
}

// Row is one equipment reading from an uploaded CSV.
type Row struct {
	EquipmentName string  `json:"equipment_name"`
	Type          string  `json:"type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// RowPage is a (possibly limited) slice of a dataset's rows.
type RowPage struct {
	DatasetID  int64 `json:"dataset_id"`
	TotalCount int   `json:"total_count"`
	Rows       []Row `json:"data"`
}

// HistoryEntry is one previously uploaded dataset.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	UploadedAt Timestamp `json:"uploaded_at"`
	Summary    Summary   `json:"summary"`
}

// UploadResult is returned by a successful upload.
type UploadResult struct {
	DatasetID int64   `json:"dataset_id"`
	Summary   Summary `json:"summary"`
}

// Timestamp accepts RFC 3339 values as well as zone-less ISO 8601 values,
// which are read as UTC.
type Timestamp struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a backend timestamp string.
func ParseTimestamp(value string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return Timestamp{t}, nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
