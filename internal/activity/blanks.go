package activity

// Blanks is a fill_blanks answer box. Check acknowledges the answer without
// grading it against the word bank.
type Blanks struct {
	Sentence     string   `json:"sentence"`
	Bank         []string `json:"bank,omitempty"`
	Answer       string   `json:"answer"`
	Acknowledged bool     `json:"acknowledged"`
}

// SetAnswer replaces the free-text answer.
func (b *Blanks) SetAnswer(s string) {
	b.Answer = s
}

// Check sets the acknowledged flag, whatever the answer.
func (b *Blanks) Check() {
	b.Acknowledged = true
}

// Reset clears the answer and the acknowledgement.
func (b *Blanks) Reset() {
	b.Answer = ""
	b.Acknowledged = false
}
