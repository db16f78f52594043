package domain

import "time"

// Stage numbers shown next to activity entries.
const (
	StageInit     = 0
	StageGenerate = 1
	StageScore    = 2
	StageEnhance  = 3
	StageDone     = 4
)

type Activity struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stage     int       `json:"stage"`
}
