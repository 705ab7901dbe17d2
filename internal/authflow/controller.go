package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chefserve/chef-vendor/pkg/logger"
)

// State is the flow position, independent of any screen.
type State string

const (
	StateIdentifying         State = "identifying"
	StateOtpSending          State = "otp_sending"
	StateOtpPending          State = "otp_pending"
	StateOtpVerifying        State = "otp_verifying"
	StateEstablishingSession State = "establishing_session"
	StateComplete            State = "complete"
	StateAborted             State = "aborted"
)

// DefaultSessionKey is the single logical key the session record lives under.
const DefaultSessionKey = "user"

// RoleVendor is the role sent on every login/register call from this app.
const RoleVendor = "Vendor"

// ErrResendUnavailable is returned when Resend is called before the cooldown
// has elapsed.
var ErrResendUnavailable = errors.New("authflow: resend not yet available")

// Callbacks let UI glue observe the flow. All fields are optional and are
// invoked without any controller lock held.
type Callbacks struct {
	OnStateChange     func(State)
	OnTick            func(secondsRemaining int)
	OnResendAvailable func()
	OnComplete        func(*User)
	OnAborted         func(error)
}

// Option configures a Controller.
type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithCallbacks(cb Callbacks) Option {
	return func(c *Controller) { c.cb = cb }
}

func WithResendCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

func WithSessionKey(key string) Option {
	return func(c *Controller) { c.sessionKey = key }
}

// Controller drives one phone/email + OTP verification flow from
// Identifying through Complete or Aborted. One instance per flow; a
// discarded instance must be Closed so its countdown stops and late network
// results are dropped.
type Controller struct {
	api   AuthAPI
	store SessionStore
	probe DeviceProbe
	clock Clock
	cb    Callbacks

	cooldown   time.Duration
	sessionKey string

	mu             sync.Mutex
	state          State
	req            *Request
	challenge      *Challenge
	resendDisabled bool
	gen            int
	closed         bool
	stopTick       chan struct{}
}

func NewController(api AuthAPI, store SessionStore, probe DeviceProbe, opts ...Option) *Controller {
	c := &Controller{
		api:        api,
		store:      store,
		probe:      probe,
		clock:      SystemClock(),
		cooldown:   DefaultResendCooldown,
		sessionKey: DefaultSessionKey,
		state:      StateIdentifying,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current flow position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChallengeStatus reports the live challenge's status, or "" when none exists.
func (c *Controller) ChallengeStatus() ChallengeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return ""
	}
	return c.challenge.Status()
}

// ResendAvailable reports whether the resend guard is open.
func (c *Controller) ResendAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return false
	}
	return !c.clock.Now().Before(c.challenge.resendAvailableAt)
}

// ResendDisabled mirrors the countdown: true from dispatch until the tick
// that reaches zero flips it, without user action.
func (c *Controller) ResendDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resendDisabled
}

// ResendRemaining returns whole seconds until resend opens, rounding up.
func (c *Controller) ResendRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.challenge == nil {
		return 0
	}
	left := c.challenge.resendAvailableAt.Sub(c.clock.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Start validates the request and, if it passes the entry guard, dispatches
// the first one-time code. In login mode the account's existence is checked
// before any code is sent.
func (c *Controller) Start(ctx context.Context, req *Request) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	if c.state != StateIdentifying {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("authflow: start not allowed in state %s", state)
	}
	gen := c.gen
	c.mu.Unlock()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Mode == ModeLogin {
		exists, err := c.api.CheckUser(ctx, req.Identifier)
		if err != nil {
			if !c.stillActive(gen) {
				return ErrFlowClosed
			}
			return flowError(KindOtpDispatch, "checking account", err)
		}
		if !exists {
			if !c.stillActive(gen) {
				return ErrFlowClosed
			}
			return flowError(KindAccountNotFound, "no account found for this number, please register first", nil)
		}
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	c.req = req
	c.mu.Unlock()

	if err := c.setState(gen, StateOtpSending); err != nil {
		return err
	}
	return c.dispatch(ctx, gen)
}

// Resend replaces the live challenge with a fresh one. The guard is purely
// time based; the countdown callback is only for display.
func (c *Controller) Resend(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	if c.state != StateOtpPending || c.challenge == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("authflow: resend not allowed in state %s", state)
	}
	if c.clock.Now().Before(c.challenge.resendAvailableAt) {
		c.mu.Unlock()
		return ErrResendUnavailable
	}
	gen := c.gen
	c.mu.Unlock()

	if err := c.setState(gen, StateOtpSending); err != nil {
		return err
	}
	return c.dispatch(ctx, gen)
}

// SubmitCode verifies the entered code. A mismatch marks the challenge
// failed and returns to OtpPending; a match runs session establishment to a
// terminal state.
func (c *Controller) SubmitCode(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	if c.state != StateOtpPending || c.challenge == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("authflow: no pending code to verify in state %s", state)
	}
	if len(code) != CodeLength || nonDigitsRe.MatchString(code) {
		c.mu.Unlock()
		return validationError("code", fmt.Sprintf("code must be %d digits", CodeLength))
	}
	gen := c.gen
	challenge := c.challenge
	c.mu.Unlock()

	if err := c.setState(gen, StateOtpVerifying); err != nil {
		return err
	}

	if !challenge.matches(code) {
		c.mu.Lock()
		if c.closed || c.gen != gen {
			c.mu.Unlock()
			return ErrFlowClosed
		}
		challenge.status = ChallengeFailed
		c.mu.Unlock()
		if err := c.setState(gen, StateOtpPending); err != nil {
			return err
		}
		return flowError(KindOtpMismatch, "the code you entered is incorrect", nil)
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	challenge.status = ChallengeVerified
	c.mu.Unlock()

	if err := c.setState(gen, StateEstablishingSession); err != nil {
		return err
	}
	return c.establishSession(ctx, gen)
}

// Close tears down the flow instance. Any in-flight call finishes without
// mutating state, and the countdown goroutine exits.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.stopCountdownLocked()
}

func (c *Controller) dispatch(ctx context.Context, gen int) error {
	c.mu.Lock()
	req := c.req
	c.mu.Unlock()

	code, err := c.api.SendOtp(ctx, req.Channel, req.Identifier)
	if err != nil {
		if serr := c.setState(gen, StateIdentifying); serr != nil {
			return serr
		}
		return flowError(KindOtpDispatch, "sending one-time code", err)
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	now := c.clock.Now()
	c.challenge = newChallenge(code, now, c.cooldown)
	c.resendDisabled = true
	c.state = StateOtpPending
	c.stopCountdownLocked()
	stop := make(chan struct{})
	c.stopTick = stop
	availableAt := c.challenge.resendAvailableAt
	cb := c.cb.OnStateChange
	c.mu.Unlock()

	go c.runCountdown(stop, availableAt)

	if cb != nil {
		cb(StateOtpPending)
	}
	return nil
}

func (c *Controller) establishSession(ctx context.Context, gen int) error {
	c.mu.Lock()
	req := c.req
	c.mu.Unlock()

	var (
		res *AccountResult
		err error
	)
	if req.Mode == ModeRegister {
		reg := req.Registration
		phone := ""
		if req.Channel == ChannelPhone {
			phone = req.Identifier
		}
		res, err = c.api.Register(ctx, RegisterParams{
			Name:     reg.Name,
			Email:    reg.Email,
			Password: reg.Password,
			Phone:    phone,
			Role:     RoleVendor,
		})
	} else {
		res, err = c.api.Login(ctx, req.Identifier)
	}

	if err != nil || res == nil || !res.Success || res.User == nil {
		message := "could not establish a session"
		if res != nil && res.Message != "" {
			message = res.Message
		}
		if serr := c.setState(gen, StateIdentifying); serr != nil {
			return serr
		}
		return flowError(KindSessionEstablishment, message, err)
	}

	user := res.User
	payload, err := json.Marshal(user)
	if err == nil {
		err = c.store.Set(ctx, c.sessionKey, string(payload))
	}
	if err != nil {
		// The account call already succeeded server-side; retrying here
		// risks a double registration, so the flow dies instead.
		ferr := flowError(KindPersistence, "saving session", err)
		c.mu.Lock()
		if c.closed || c.gen != gen {
			c.mu.Unlock()
			return ErrFlowClosed
		}
		c.state = StateAborted
		c.stopCountdownLocked()
		cbState := c.cb.OnStateChange
		cbAborted := c.cb.OnAborted
		c.mu.Unlock()
		if cbState != nil {
			cbState(StateAborted)
		}
		if cbAborted != nil {
			cbAborted(ferr)
		}
		return ferr
	}

	c.notify(ctx, req, user)

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	c.state = StateComplete
	c.stopCountdownLocked()
	cbState := c.cb.OnStateChange
	cbComplete := c.cb.OnComplete
	c.mu.Unlock()
	if cbState != nil {
		cbState(StateComplete)
	}
	if cbComplete != nil {
		cbComplete(user)
	}
	return nil
}

// notify sends the best-effort sign-in audit email. The probe runs fresh on
// every call; failure is logged and swallowed.
func (c *Controller) notify(ctx context.Context, req *Request, user *User) {
	email := user.Email
	name := user.Name
	if req.Mode == ModeRegister && req.Registration != nil {
		if req.Registration.Email != "" {
			email = req.Registration.Email
		}
		if req.Registration.Name != "" {
			name = req.Registration.Name
		}
	}
	if email == "" {
		return
	}

	device := c.probe.DeviceClass()
	ip := c.probe.PublicIP(ctx)

	var err error
	if req.Mode == ModeRegister {
		err = c.api.SendRegisterNotification(ctx, email, name, ip, device)
	} else {
		err = c.api.SendLoginNotification(ctx, email, ip, device)
	}
	if err != nil {
		logger.WarnContext(ctx, "Failed to send sign-in notification",
			"error", err,
			"kind", string(KindNotification),
			"mode", string(req.Mode),
		)
	}
}

func (c *Controller) runCountdown(stop chan struct{}, availableAt time.Time) {
	for {
		select {
		case <-stop:
			return
		case <-c.clock.After(time.Second):
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			left := availableAt.Sub(c.clock.Now())
			if left <= 0 {
				c.resendDisabled = false
				cb := c.cb.OnResendAvailable
				c.mu.Unlock()
				if cb != nil {
					cb()
				}
				return
			}
			remaining := int((left + time.Second - 1) / time.Second)
			cb := c.cb.OnTick
			c.mu.Unlock()
			if cb != nil {
				cb(remaining)
			}
		}
	}
}

func (c *Controller) setState(gen int, s State) error {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return ErrFlowClosed
	}
	c.state = s
	cb := c.cb.OnStateChange
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
	return nil
}

func (c *Controller) stillActive(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.gen == gen
}

// stopCountdownLocked must be called with c.mu held.
func (c *Controller) stopCountdownLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}
