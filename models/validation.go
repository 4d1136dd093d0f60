package models

// Validation is the decision returned by the message validation engine.
// Policy refusals are values, never errors, so the frontend can render
// the reason directly.
type Validation struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
	Current *int64 `json:"current,omitempty"`
	Limit   *int64 `json:"limit,omitempty"`
}

// MessageLimits is a snapshot of a user's quota consumption for the
// current day. Nil fields mean "no such limit applies".
type MessageLimits struct {
	TotalToday    int64  `json:"total_today"`
	ToOfficial    *int64 `json:"to_official,omitempty"`
	DailyLimit    *int64 `json:"daily_limit"`
	OfficialLimit *int64 `json:"official_limit,omitempty"`
	IsExceeded    bool   `json:"is_exceeded"`
}
