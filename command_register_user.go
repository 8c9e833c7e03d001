package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	// PhoneRegion is the ISO 3166-1 alpha-2 region used to parse national
	// numbers, defaults to US.
	PhoneRegion string         `json:"phone_region"`
	Password    string         `json:"password"`
	Tier        MembershipTier `json:"tier"`
	UseHashid   bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Phone, validation.By(validatePhone(e.PhoneRegion))),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&e.Tier, validation.In(TierFree, TierBasic, TierPremium)),
	)
}

// RegisterUserHandler creates a principal inside a transaction.
type RegisterUserHandler struct {
	repo         RepositoryManager
	activitySink ActivitySink
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:         repo,
		activitySink: noopActivitySink{},
	}
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = strings.ToLower(strings.TrimSpace(event.Email))
		user.Phone = normalizePhone(event.Phone, event.PhoneRegion)
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Status = UserStatusActive
		user.MembershipTier = event.Tier
		if event.UseHashid {
			if id, err := hashid.NewUUID(user.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if serr := h.activitySink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventUserRegistered,
		UserID:     user.ID.String(),
		Identifier: user.Email,
		OccurredAt: time.Now(),
	}); serr != nil {
		defLogger{}.Error("activity sink error for %s: %v", ActivityEventUserRegistered, serr)
	}

	return nil
}

func validatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		raw, _ := value.(string)
		if strings.TrimSpace(raw) == "" {
			return nil
		}

		parsed, err := phonenumbers.Parse(raw, phoneRegion(region))
		if err != nil {
			return goerrors.New("invalid phone number", goerrors.CategoryValidation)
		}
		if !phonenumbers.IsValidNumber(parsed) {
			return goerrors.New("invalid phone number", goerrors.CategoryValidation)
		}
		return nil
	}
}

// normalizePhone stores phones in E.164 so lookups don't depend on how the
// user typed the number. Unparseable input is kept as-is; validation already
// rejected it unless the field was optional.
func normalizePhone(raw, region string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(raw, phoneRegion(region))
	if err != nil {
		return raw
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func phoneRegion(region string) string {
	if region == "" {
		return "US"
	}
	return strings.ToUpper(region)
}
