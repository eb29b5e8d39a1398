package wipe

import (
	"time"
)

// Status итоговый статус сеанса
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusPartial   Status = "PARTIAL"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// WipeRecord запись об успешно затертом файле
type WipeRecord struct {
	Name   string `json:"name" yaml:"name"`
	Length int64  `json:"original_byte_length" yaml:"original_byte_length"`
}

// Failure файл или директория, которые не удалось обработать
type Failure struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
}

// WipeResult результат сеанса затирания. Run возвращает замороженную копию.
type WipeResult struct {
	CertificateID   CertificateID
	StartTime       time.Time
	EndTime         time.Time
	Records         []WipeRecord
	FilesFound      int
	FilesAttempted  int
	FilesSucceeded  int
	TotalBytesWiped int64
	Failures        []Failure
	// Unreadable директории, которые не удалось прочитать при обходе
	Unreadable  []Failure
	DirsPruned  int
	PruneErrors []string
	Status      Status
	// Error причина фатального отказа (недоступный корень)
	Error string
}

// Duration длительность сеанса
func (r WipeResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// ProgressInfo событие прогресса для приемника
type ProgressInfo struct {
	Processed int
	Total     int
}

// Percentage процент обработанных файлов
func (p ProgressInfo) Percentage() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Processed) / float64(p.Total) * 100
}
