package auth

import (
	stderrors "errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the JSON auth endpoints on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")
	app.Post(controller.Routes.TwoFactorVerify, controller.TwoFactorVerifyPost).
		SetName("auth.2fa.verify")
	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")
	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register")

	protected := controller.Auther.ProtectedRoute(
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Post(controller.Routes.TwoFactorSetup, protected(controller.TwoFactorSetupPost)).
		SetName("auth.2fa.setup")
	app.Post(controller.Routes.TwoFactorActivate, protected(controller.TwoFactorActivatePost)).
		SetName("auth.2fa.activate")
	app.Delete(controller.Routes.TwoFactorSetup, protected(controller.TwoFactorDisableDelete)).
		SetName("auth.2fa.disable")
}

type AuthControllerRoutes struct {
	Login             string
	TwoFactorVerify   string
	TwoFactorSetup    string
	TwoFactorActivate string
	Refresh           string
	Logout            string
	Register          string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:             "/auth/login",
			TwoFactorVerify:   "/auth/2fa/verify",
			TwoFactorSetup:    "/auth/2fa",
			TwoFactorActivate: "/auth/2fa/activate",
			Refresh:           "/auth/refresh",
			Logout:            "/auth/logout",
			Register:          "/auth/register",
		},
	}
	c.ErrorHandler = c.respondError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the client asked for a remember-me session
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	result, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// a challenged login is still a 200: the password step succeeded
	return ctx.JSON(http.StatusOK, result)
}

// TwoFactorVerifyRequest completes a challenged login.
type TwoFactorVerifyRequest struct {
	ChallengeToken string `form:"challenge_token" json:"challenge_token"`
	Code           string `form:"code" json:"code"`
}

func (r TwoFactorVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ChallengeToken, validation.Required),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *AuthController) TwoFactorVerifyPost(ctx router.Context) error {
	payload := new(TwoFactorVerifyRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	result, err := a.Auther.VerifyTwoFactor(ctx, payload.ChallengeToken, payload.Code)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (a *AuthController) RefreshPost(ctx router.Context) error {
	result, err := a.Auther.Refresh(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(http.StatusOK, router.ViewContext{
		"logged_out": true,
	})
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"error": "unable to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %v", err)
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, router.ViewContext{
		"registered": true,
	})
}

// TwoFactorSetupPost stages a new TOTP secret for the authenticated user.
func (a *AuthController) TwoFactorSetupPost(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Auther.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenInvalid)
	}

	userID, err := parseUserID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	setup, err := a.Auther.auth.BeginTwoFactorSetup(ctx.Context(), userID)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, setup)
}

// TwoFactorActivateRequest proves possession of the staged secret.
type TwoFactorActivateRequest struct {
	Code string `form:"code" json:"code"`
}

func (r TwoFactorActivateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// TwoFactorActivatePost flips the staged secret live once the submitted
// code checks out.
func (a *AuthController) TwoFactorActivatePost(ctx router.Context) error {
	payload := new(TwoFactorActivateRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	claims, ok := GetRouterClaims(ctx, a.Auther.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenInvalid)
	}

	userID, err := parseUserID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auther.auth.ConfirmTwoFactorSetup(ctx.Context(), userID, payload.Code); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"two_factor_enabled": true,
	})
}

func (a *AuthController) TwoFactorDisableDelete(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Auther.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenInvalid)
	}

	userID, err := parseUserID(claims)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auther.auth.DisableTwoFactor(ctx.Context(), userID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, router.ViewContext{
		"two_factor_enabled": false,
	})
}

// respondError maps rich errors onto wire responses. The status code lives
// on the error itself; the body exposes the text code plus any client-safe
// metadata such as retry_after_minutes on a locked account.
func (a *AuthController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("unexpected error: %v", err)
		return ctx.JSON(http.StatusInternalServerError, router.ViewContext{
			"error": "internal server error",
		})
	}

	body := router.ViewContext{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	}
	if len(richErr.Metadata) > 0 {
		body["metadata"] = richErr.Metadata
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return ctx.JSON(status, body)
}

func parseUserID(claims AuthClaims) (uuid.UUID, error) {
	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a field
// to message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
