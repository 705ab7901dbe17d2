package authflow

import "time"

// CodeLength is the fixed length of a one-time code.
const CodeLength = 4

// DefaultResendCooldown is how long resend stays disabled after a dispatch.
const DefaultResendCooldown = 30 * time.Second

// ChallengeStatus tracks the verification outcome of a single code.
type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeVerified ChallengeStatus = "verified"
	ChallengeFailed   ChallengeStatus = "failed"
)

// Challenge is one dispatched code. A resend replaces the whole challenge,
// clearing any digits the user had entered.
type Challenge struct {
	expected          string
	status            ChallengeStatus
	issuedAt          time.Time
	resendAvailableAt time.Time
}

func newChallenge(expected string, now time.Time, cooldown time.Duration) *Challenge {
	return &Challenge{
		expected:          expected,
		status:            ChallengePending,
		issuedAt:          now,
		resendAvailableAt: now.Add(cooldown),
	}
}

// Status returns the verification state of this challenge.
func (c *Challenge) Status() ChallengeStatus { return c.status }

// ResendAvailableAt is the instant the resend guard opens.
func (c *Challenge) ResendAvailableAt() time.Time { return c.resendAvailableAt }

func (c *Challenge) matches(code string) bool {
	return code == c.expected
}
