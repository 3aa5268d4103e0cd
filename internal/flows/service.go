package flows

import "context"

// Deps groups flow dependency sets. The root engine builds this once.
type Deps struct {
	Validate  ValidateDeps
	Issue     IssuePairDeps
	Refresh   RefreshDeps
	Revoke    RevokeDeps
	Authorize AuthorizeDeps
	Login     LoginDeps
}

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired.
func (s Service) Initialized() bool {
	return s.deps.Validate.DecodeVerify != nil
}

func (s Service) Validate(raw string) ValidateResult {
	return RunValidate(raw, s.deps.Validate)
}

func (s Service) IssueDeps() IssueDeps {
	return s.deps.Issue.Issue
}

func (s Service) IssuePair(ctx context.Context, subject int64) (TokenPair, error) {
	return RunIssuePair(ctx, subject, s.deps.Issue)
}

func (s Service) Refresh(ctx context.Context, raw string) RefreshResult {
	return RunRefresh(ctx, raw, s.deps.Refresh)
}

func (s Service) Revoke(ctx context.Context, subject int64) error {
	return RunRevoke(ctx, subject, s.deps.Revoke)
}

func (s Service) Logout(ctx context.Context, raw string) LogoutResult {
	return RunLogout(ctx, raw, s.deps.Revoke)
}

func (s Service) Authorize(ctx context.Context, credential, module, verb string) AuthorizeResult {
	return RunAuthorize(ctx, credential, module, verb, s.deps.Authorize)
}

func (s Service) Login(ctx context.Context, identifier, password string) LoginResult {
	return RunLogin(ctx, identifier, password, s.deps.Login)
}
