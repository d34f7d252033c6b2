package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/talentmarket/internal/identity/domain"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // by ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeUserRepo) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

type fakeFactorRepo struct {
	mu      sync.Mutex
	factors map[string]*domain.Factor
}

func newFakeFactorRepo() *fakeFactorRepo {
	return &fakeFactorRepo{factors: make(map[string]*domain.Factor)}
}

func (r *fakeFactorRepo) Save(ctx context.Context, factor *domain.Factor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *factor
	r.factors[factor.ID] = &clone
	return nil
}

func (r *fakeFactorRepo) GetByID(ctx context.Context, id string) (*domain.Factor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.factors[id]; ok {
		clone := *f
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeFactorRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Factor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Factor
	for _, f := range r.factors {
		if f.UserID == userID {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeFactorRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factors, id)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.AuthSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.AuthSession)}
}

func (r *fakeSessionRepo) Save(ctx context.Context, session *domain.AuthSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions[session.Token] = &clone
	return nil
}

func (r *fakeSessionRepo) Get(ctx context.Context, token string) (*domain.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[token]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

type capturingSMSSender struct {
	mu       sync.Mutex
	messages []string
	targets  []string
	err      error
}

func (s *capturingSMSSender) Send(ctx context.Context, phoneNumber, content string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, phoneNumber)
	s.messages = append(s.messages, content)
	return nil
}

func newTestIdentityService(t *testing.T, requireConfirmation bool) (*IdentityCommandService, *IdentityQueryService, *fakeFactorRepo, *capturingSMSSender) {
	t.Helper()
	users := newFakeUserRepo()
	factors := newFakeFactorRepo()
	sessions := newFakeSessionRepo()
	sms := &capturingSMSSender{}
	cmd := NewIdentityCommandService(users, factors, sessions, sms, nil, "talentmarket", requireConfirmation)
	query := NewIdentityQueryService(users, factors, sessions)
	return cmd, query, factors, sms
}

func TestCreateAccountAndSignIn(t *testing.T) {
	cmd, query, _, _ := newTestIdentityService(t, false)
	ctx := context.Background()

	created, err := cmd.CreateAccount(ctx, CreateAccountCommand{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, created.Session)

	// 会话按令牌可查，过期前有效
	session, err := query.GetSession(ctx, created.Session.Token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, created.UserID, session.UserID)

	// 重复注册撞唯一性
	_, err = cmd.CreateAccount(ctx, CreateAccountCommand{Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	// 同一凭证可透明登录
	signedIn, err := cmd.SignIn(ctx, SignInCommand{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, created.UserID, signedIn.UserID)

	// 密码错误可区分
	_, err = cmd.SignIn(ctx, SignInCommand{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCreateAccountPendingConfirmation(t *testing.T) {
	cmd, _, _, _ := newTestIdentityService(t, true)
	ctx := context.Background()

	result, err := cmd.CreateAccount(ctx, CreateAccountCommand{Email: "b@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrConfirmationPending)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.UserID)
	assert.Nil(t, result.Session)

	// 未确认前登录同样被挡
	_, err = cmd.SignIn(ctx, SignInCommand{Email: "b@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrConfirmationPending)
}

func TestTOTPEnrollAndVerify(t *testing.T) {
	cmd, query, _, _ := newTestIdentityService(t, false)
	ctx := context.Background()

	account, err := cmd.CreateAccount(ctx, CreateAccountCommand{Email: "c@example.com", Password: "password123"})
	require.NoError(t, err)

	enrolled, err := cmd.EnrollFactor(ctx, EnrollFactorCommand{UserID: account.UserID, Strategy: domain.StrategyTOTP})
	require.NoError(t, err)
	assert.NotEmpty(t, enrolled.Secret)
	assert.Contains(t, enrolled.QRPayload, "otpauth://")

	// 错误验证码不置位
	err = cmd.VerifyFactor(ctx, enrolled.FactorID, "000000")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	code, err := totp.GenerateCode(enrolled.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, cmd.VerifyFactor(ctx, enrolled.FactorID, code))

	factors, err := query.ListFactors(ctx, account.UserID)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.True(t, factors[0].Verified)
}

func TestPhoneChallengeAndVerify(t *testing.T) {
	cmd, _, factorRepo, sms := newTestIdentityService(t, false)
	ctx := context.Background()

	account, err := cmd.CreateAccount(ctx, CreateAccountCommand{Email: "d@example.com", Password: "password123"})
	require.NoError(t, err)

	enrolled, err := cmd.EnrollFactor(ctx, EnrollFactorCommand{
		UserID: account.UserID, Strategy: domain.StrategyPhone, PhoneNumber: "+15550100",
	})
	require.NoError(t, err)
	// 短信路径登记不下发验证码
	assert.Empty(t, sms.messages)

	// 未下发验证码前校验被拒
	err = cmd.VerifyFactor(ctx, enrolled.FactorID, "123456")
	assert.ErrorIs(t, err, domain.ErrChallengeRequired)

	require.NoError(t, cmd.ChallengeFactor(ctx, enrolled.FactorID))
	require.Len(t, sms.targets, 1)
	assert.Equal(t, "+15550100", sms.targets[0])

	stored, err := factorRepo.GetByID(ctx, enrolled.FactorID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ChallengeCode)

	require.NoError(t, cmd.VerifyFactor(ctx, enrolled.FactorID, stored.ChallengeCode))
	verified, _ := factorRepo.GetByID(ctx, enrolled.FactorID)
	assert.True(t, verified.Verified)
	// 一次性验证码用后即清
	assert.Empty(t, verified.ChallengeCode)
}

func TestChallengeWithUnavailableGateway(t *testing.T) {
	cmd, _, factorRepo, sms := newTestIdentityService(t, false)
	sms.err = domain.ErrSMSUnavailable
	ctx := context.Background()

	account, err := cmd.CreateAccount(ctx, CreateAccountCommand{Email: "e@example.com", Password: "password123"})
	require.NoError(t, err)
	enrolled, err := cmd.EnrollFactor(ctx, EnrollFactorCommand{
		UserID: account.UserID, Strategy: domain.StrategyPhone, PhoneNumber: "+15550100",
	})
	require.NoError(t, err)

	err = cmd.ChallengeFactor(ctx, enrolled.FactorID)
	assert.ErrorIs(t, err, domain.ErrSMSUnavailable)

	// 发送失败不留下可用的 challenge
	stored, _ := factorRepo.GetByID(ctx, enrolled.FactorID)
	assert.Empty(t, stored.ChallengeCode)
}

func TestUnenrollFactor(t *testing.T) {
	cmd, query, _, _ := newTestIdentityService(t, false)
	ctx := context.Background()

	account, err := cmd.CreateAccount(ctx, CreateAccountCommand{Email: "f@example.com", Password: "password123"})
	require.NoError(t, err)
	enrolled, err := cmd.EnrollFactor(ctx, EnrollFactorCommand{UserID: account.UserID, Strategy: domain.StrategyTOTP})
	require.NoError(t, err)

	require.NoError(t, cmd.UnenrollFactor(ctx, enrolled.FactorID))
	factors, _ := query.ListFactors(ctx, account.UserID)
	assert.Empty(t, factors)

	assert.ErrorIs(t, cmd.UnenrollFactor(ctx, enrolled.FactorID), domain.ErrFactorNotFound)
}
