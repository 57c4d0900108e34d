package models

// Media is the singleton media/content document. It has no schema the
// service relies on, so it is passed through as-is.
type Media map[string]any
