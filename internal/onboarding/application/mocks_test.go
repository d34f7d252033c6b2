package application

import (
	"context"
	"fmt"
	"sync"

	identityapp "github.com/wyfcoding/talentmarket/internal/identity/application"
	identitydomain "github.com/wyfcoding/talentmarket/internal/identity/domain"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// fakeProfileRepo 内存档案仓储，按真实仓储的约束模拟唯一索引
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.OnboardingProfile
	saveErr  error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*domain.OnboardingProfile)}
}

func (r *fakeProfileRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeProfileRepo) Save(ctx context.Context, profile *domain.OnboardingProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for id, existing := range r.profiles {
		if id == profile.ID {
			continue
		}
		if profile.Handle != "" && existing.Handle == profile.Handle {
			return domain.ErrHandleTaken
		}
		if profile.UserID != "" && existing.UserID == profile.UserID {
			return &domain.ConflictError{Resource: "user_id", Reason: "identity already bound to a profile"}
		}
	}
	clone := *profile
	r.profiles[profile.ID] = &clone
	return nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id string) (*domain.OnboardingProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.OnboardingProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) GetByInviteToken(ctx context.Context, token string) (*domain.OnboardingProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.InviteToken == token {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) HandleExists(ctx context.Context, handle, excludeProfileID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.profiles {
		if id == excludeProfileID {
			continue
		}
		if p.Handle == handle {
			return true, nil
		}
	}
	return false, nil
}

// fakeProgressRepo 内存续传快照仓储
type fakeProgressRepo struct {
	mu        sync.Mutex
	snapshots map[string]*domain.ProgressSnapshot
	clears    int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{snapshots: make(map[string]*domain.ProgressSnapshot)}
}

func (r *fakeProgressRepo) Save(ctx context.Context, key string, snapshot *domain.ProgressSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *snapshot
	r.snapshots[key] = &clone
	return nil
}

func (r *fakeProgressRepo) Load(ctx context.Context, key string) (*domain.ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.snapshots[key]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeProgressRepo) Clear(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, key)
	r.clears++
	return nil
}

// fakeMediaStore 返回固定地址的媒体存储
type fakeMediaStore struct{}

func (s *fakeMediaStore) Upload(ctx context.Context, fileName string, content []byte, ownerID string) (string, error) {
	return fmt.Sprintf("https://media.example.com/%s/%s", ownerID, fileName), nil
}

// recordedEvent 测试捕获的事件
type recordedEvent struct {
	EventType string
	Key       string
	Payload   any
}

type fakePublisher struct {
	mu         sync.Mutex
	events     []recordedEvent
	publishErr error
}

func (p *fakePublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType, key, payload})
	return nil
}

func (p *fakePublisher) PublishInTx(ctx context.Context, tx any, eventType, key string, payload any) error {
	return p.Publish(ctx, eventType, key, payload)
}

func (p *fakePublisher) eventsOf(eventType string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeIdentity 身份存储的内存替身，验证码固定为 123456
type fakeIdentity struct {
	mu                  sync.Mutex
	passwords           map[string]string // email -> password
	userIDs             map[string]string // email -> userID
	factors             map[string]*identitydomain.Factor
	seq                 int
	pendingConfirmation bool
	smsUnavailable      bool
	enrollCalls         int
	challengeCalls      int
	unenrolled          []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		passwords: make(map[string]string),
		userIDs:   make(map[string]string),
		factors:   make(map[string]*identitydomain.Factor),
	}
}

func (f *fakeIdentity) CreateAccount(ctx context.Context, cmd identityapp.CreateAccountCommand) (*identityapp.AccountResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[cmd.Email]; ok {
		return nil, identitydomain.ErrAlreadyRegistered
	}
	f.seq++
	userID := fmt.Sprintf("USR-%d", f.seq)
	f.passwords[cmd.Email] = cmd.Password
	f.userIDs[cmd.Email] = userID
	if f.pendingConfirmation {
		return &identityapp.AccountResult{UserID: userID}, identitydomain.ErrConfirmationPending
	}
	return &identityapp.AccountResult{
		UserID:  userID,
		Session: &identitydomain.AuthSession{Token: "tok-" + userID, UserID: userID},
	}, nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, cmd identityapp.SignInCommand) (*identityapp.AccountResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	password, ok := f.passwords[cmd.Email]
	if !ok || password != cmd.Password {
		return nil, identitydomain.ErrInvalidCredentials
	}
	userID := f.userIDs[cmd.Email]
	return &identityapp.AccountResult{
		UserID:  userID,
		Session: &identitydomain.AuthSession{Token: "tok-" + userID, UserID: userID},
	}, nil
}

func (f *fakeIdentity) EnrollFactor(ctx context.Context, cmd identityapp.EnrollFactorCommand) (*identityapp.EnrollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrollCalls++
	f.seq++
	factorID := fmt.Sprintf("FAC-%d", f.seq)
	factor := &identitydomain.Factor{ID: factorID, UserID: cmd.UserID, Strategy: cmd.Strategy, PhoneNumber: cmd.PhoneNumber}
	f.factors[factorID] = factor
	result := &identityapp.EnrollResult{FactorID: factorID}
	if cmd.Strategy == identitydomain.StrategyTOTP {
		result.Secret = "JBSWY3DPEHPK3PXP"
		result.QRPayload = "otpauth://totp/talentmarket:test"
	}
	return result, nil
}

func (f *fakeIdentity) ChallengeFactor(ctx context.Context, factorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.smsUnavailable {
		return identitydomain.ErrSMSUnavailable
	}
	if _, ok := f.factors[factorID]; !ok {
		return identitydomain.ErrFactorNotFound
	}
	f.challengeCalls++
	return nil
}

func (f *fakeIdentity) VerifyFactor(ctx context.Context, factorID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	factor, ok := f.factors[factorID]
	if !ok {
		return identitydomain.ErrFactorNotFound
	}
	if code != "123456" {
		return identitydomain.ErrInvalidCode
	}
	factor.Verified = true
	return nil
}

func (f *fakeIdentity) UnenrollFactor(ctx context.Context, factorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.factors, factorID)
	f.unenrolled = append(f.unenrolled, factorID)
	return nil
}

func (f *fakeIdentity) ListFactors(ctx context.Context, userID string) ([]*identitydomain.Factor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*identitydomain.Factor
	for _, factor := range f.factors {
		if factor.UserID == userID {
			clone := *factor
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeIdentity) addVerifiedFactor(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	factorID := fmt.Sprintf("FAC-%d", f.seq)
	f.factors[factorID] = &identitydomain.Factor{
		ID: factorID, UserID: userID, Strategy: identitydomain.StrategyTOTP, Verified: true,
	}
}

// fakeTalent 记录伴生 upsert 调用
type fakeTalent struct {
	mu      sync.Mutex
	upserts []string // userID
	err     error
}

func (f *fakeTalent) UpsertContact(ctx context.Context, userID, role, displayName, email, phone string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, userID)
	return nil
}
