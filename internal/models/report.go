package models

import "time"

// ExportFormat names the supported anomaly export renderings.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportPDF  ExportFormat = "pdf"
)

// AnomalySummary pairs an anomalous record with its severity score.
type AnomalySummary struct {
	Record AttendanceRecord `json:"record"`
	Score  float64          `json:"score"`
}

// EmployeeAnomalyCount aggregates anomalies per employee.
type EmployeeAnomalyCount struct {
	EmployeeID   string  `db:"employee_id" json:"employee_id"`
	EmployeeName string  `db:"employee_name" json:"employee_name"`
	Count        int     `db:"count" json:"count"`
	ScheduledDays int    `db:"scheduled_days" json:"scheduled_days"`
	Rate         float64 `db:"-" json:"rate"`
}

// DailyAnomalyCount aggregates anomalies per calendar day.
type DailyAnomalyCount struct {
	Date  time.Time `db:"date" json:"date"`
	Count int       `db:"count" json:"count"`
}

// KindCount aggregates anomalies per kind.
type KindCount struct {
	Kind  AnomalyKind `db:"kind" json:"kind"`
	Count int         `db:"count" json:"count"`
}

// PresenceStats feeds the presence and punctuality rates.
type PresenceStats struct {
	ScheduledDays int `db:"scheduled_days" json:"scheduled_days"`
	PresentDays   int `db:"present_days" json:"present_days"`
	OnTimeDays    int `db:"on_time_days" json:"on_time_days"`
}

// RecurrenceFrequency labels how often a recurring anomaly shows up.
type RecurrenceFrequency string

const (
	RecurrenceDaily   RecurrenceFrequency = "Quotidienne"
	RecurrenceWeekly  RecurrenceFrequency = "Hebdomadaire"
	RecurrenceMonthly RecurrenceFrequency = "Mensuelle"
)

// RecurringAnomaly describes a repeated pattern for one employee and kind.
type RecurringAnomaly struct {
	EmployeeID   string              `json:"employee_id"`
	EmployeeName string              `json:"employee_name"`
	Kind         AnomalyKind         `json:"kind"`
	Count        int                 `json:"count"`
	Frequency    RecurrenceFrequency `json:"frequency"`
}

// DailyReport summarises one tenant-day.
type DailyReport struct {
	Date         time.Time   `json:"date"`
	TotalPunches int         `json:"total_punches"`
	PresentCount int         `json:"present_count"`
	AnomalyCount int         `json:"anomaly_count"`
	ByKind       []KindCount `json:"by_kind"`
	PresenceRate float64     `json:"presence_rate"`
}

// AnomalyDashboard is the cached dashboard aggregate.
type AnomalyDashboard struct {
	From            time.Time              `json:"from"`
	To              time.Time              `json:"to"`
	Total           int                    `json:"total"`
	ByKind          []KindCount            `json:"by_kind"`
	Daily           []DailyAnomalyCount    `json:"daily"`
	TopEmployees    []EmployeeAnomalyCount `json:"top_employees"`
	PresenceRate    float64                `json:"presence_rate"`
	PunctualityRate float64                `json:"punctuality_rate"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// TrendPoint is one step of an anomaly trend series.
type TrendPoint struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// SystemMetrics is a lightweight aggregate of process-level counters exposed
// alongside the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
