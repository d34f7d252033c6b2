package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/talentmarket/internal/identity/domain"
	"golang.org/x/crypto/bcrypt"
)

// sessionTTL 会话有效期
const sessionTTL = 24 * time.Hour

// CreateAccountCommand 创建账户命令
type CreateAccountCommand struct {
	Email    string
	Password string
}

// SignInCommand 登录命令
type SignInCommand struct {
	Email    string
	Password string
}

// EnrollFactorCommand 因子登记命令
type EnrollFactorCommand struct {
	UserID      string
	Strategy    domain.FactorStrategy
	PhoneNumber string
}

// AccountResult 创建账户或登录的结果
type AccountResult struct {
	UserID  string
	Session *domain.AuthSession
}

// EnrollResult 因子登记结果；TOTP 路径附带种子与二维码负载
type EnrollResult struct {
	FactorID  string
	Secret    string
	QRPayload string
}

// IdentityCommandService 身份命令服务
type IdentityCommandService struct {
	repo        domain.UserRepository
	factorRepo  domain.FactorRepository
	sessionRepo domain.SessionRepository
	smsSender   domain.SMSSender
	publisher   domain.EventPublisher

	issuer                   string
	requireEmailConfirmation bool
}

// NewIdentityCommandService 创建身份命令服务实例
func NewIdentityCommandService(
	repo domain.UserRepository,
	factorRepo domain.FactorRepository,
	sessionRepo domain.SessionRepository,
	smsSender domain.SMSSender,
	publisher domain.EventPublisher,
	issuer string,
	requireEmailConfirmation bool,
) *IdentityCommandService {
	return &IdentityCommandService{
		repo:                     repo,
		factorRepo:               factorRepo,
		sessionRepo:              sessionRepo,
		smsSender:                smsSender,
		publisher:                publisher,
		issuer:                   issuer,
		requireEmailConfirmation: requireEmailConfirmation,
	}
}

// CreateAccount 创建身份账户
//
// 邮箱已注册返回 ErrAlreadyRegistered；开启邮件确认时不发放会话，
// 返回 ErrConfirmationPending。
func (s *IdentityCommandService) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*AccountResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetByEmail(txCtx, cmd.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyRegistered
		}

		user = domain.NewUser(cmd.Email, string(hash), !s.requireEmailConfirmation)
		if err := s.repo.Save(txCtx, user); err != nil {
			return err
		}

		if s.publisher == nil {
			return nil
		}
		event := domain.AccountRegisteredEvent{
			UserID:    user.ID,
			Email:     user.Email,
			Role:      user.Role,
			Confirmed: user.EmailConfirmed,
			Timestamp: time.Now(),
		}
		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.AccountRegisteredEventType, cmd.Email, event)
	})
	if err != nil {
		return nil, err
	}

	if !user.EmailConfirmed {
		// 确认邮件流程：账户已创建但暂不发放会话
		return &AccountResult{UserID: user.ID}, domain.ErrConfirmationPending
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AccountResult{UserID: user.ID, Session: session}, nil
}

// SignIn 校验凭证并发放会话
func (s *IdentityCommandService) SignIn(ctx context.Context, cmd SignInCommand) (*AccountResult, error) {
	user, err := s.repo.GetByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return nil, domain.ErrConfirmationPending
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AccountResult{UserID: user.ID, Session: session}, nil
}

// EnrollFactor 登记二次认证因子
//
// TOTP 路径一次远程调用即返回种子；短信路径只登记因子，验证码由
// ChallengeFactor 单独下发。
func (s *IdentityCommandService) EnrollFactor(ctx context.Context, cmd EnrollFactorCommand) (*EnrollResult, error) {
	user, err := s.repo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	switch cmd.Strategy {
	case domain.StrategyTOTP:
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.issuer,
			AccountName: user.Email,
			Period:      30,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
			SecretSize:  20,
		})
		if err != nil {
			return nil, err
		}
		factor := domain.NewTOTPFactor(user.ID, key.Secret())
		if err := s.factorRepo.Save(ctx, factor); err != nil {
			return nil, err
		}
		return &EnrollResult{FactorID: factor.ID, Secret: key.Secret(), QRPayload: key.URL()}, nil

	case domain.StrategyPhone:
		if cmd.PhoneNumber == "" {
			return nil, fmt.Errorf("phone number is required for sms enrollment")
		}
		factor := domain.NewPhoneFactor(user.ID, cmd.PhoneNumber)
		if err := s.factorRepo.Save(ctx, factor); err != nil {
			return nil, err
		}
		return &EnrollResult{FactorID: factor.ID}, nil

	default:
		return nil, fmt.Errorf("unsupported factor strategy: %s", cmd.Strategy)
	}
}

// ChallengeFactor 向短信因子下发一次性验证码
func (s *IdentityCommandService) ChallengeFactor(ctx context.Context, factorID string) error {
	factor, err := s.factorRepo.GetByID(ctx, factorID)
	if err != nil {
		return err
	}
	if factor == nil {
		return domain.ErrFactorNotFound
	}
	if factor.Strategy != domain.StrategyPhone {
		return fmt.Errorf("factor %s does not support challenge", factorID)
	}

	code, err := sixDigitCode()
	if err != nil {
		return err
	}
	if err := s.smsSender.Send(ctx, factor.PhoneNumber, fmt.Sprintf("Your verification code is %s", code)); err != nil {
		return err
	}

	// 发送成功才记录验证码，避免网关失败后留下可用的 challenge
	factor.SetChallenge(code, time.Now())
	return s.factorRepo.Save(ctx, factor)
}

// VerifyFactor 校验验证码；只有成功才将因子置为可用
func (s *IdentityCommandService) VerifyFactor(ctx context.Context, factorID, code string) error {
	factor, err := s.factorRepo.GetByID(ctx, factorID)
	if err != nil {
		return err
	}
	if factor == nil {
		return domain.ErrFactorNotFound
	}

	now := time.Now()
	switch factor.Strategy {
	case domain.StrategyTOTP:
		if !totp.Validate(code, factor.Secret) {
			return domain.ErrInvalidCode
		}
	case domain.StrategyPhone:
		if factor.ChallengeCode == "" {
			return domain.ErrChallengeRequired
		}
		if !factor.ChallengeValid(code, now) {
			return domain.ErrInvalidCode
		}
	default:
		return fmt.Errorf("unsupported factor strategy: %s", factor.Strategy)
	}

	factor.MarkVerified(now)
	if err := s.factorRepo.Save(ctx, factor); err != nil {
		return err
	}

	if s.publisher != nil {
		event := domain.FactorVerifiedEvent{
			UserID:    factor.UserID,
			FactorID:  factor.ID,
			Strategy:  factor.Strategy,
			Timestamp: now,
		}
		_ = s.publisher.Publish(ctx, domain.FactorVerifiedEventType, factor.UserID, event)
	}
	return nil
}

// UnenrollFactor 删除因子
func (s *IdentityCommandService) UnenrollFactor(ctx context.Context, factorID string) error {
	factor, err := s.factorRepo.GetByID(ctx, factorID)
	if err != nil {
		return err
	}
	if factor == nil {
		return domain.ErrFactorNotFound
	}
	return s.factorRepo.Delete(ctx, factorID)
}

func (s *IdentityCommandService) createSession(ctx context.Context, user *domain.User) (*domain.AuthSession, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session := &domain.AuthSession{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
