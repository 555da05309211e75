package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/userval/internal/common"
	"github.com/dmitrijs2005/userval/internal/dbx"
	"github.com/dmitrijs2005/userval/internal/logging"
	"github.com/dmitrijs2005/userval/internal/server/auth"
	"github.com/dmitrijs2005/userval/internal/server/config"
	"github.com/dmitrijs2005/userval/internal/server/mailer"
	"github.com/dmitrijs2005/userval/internal/server/models"
	otpsrepo "github.com/dmitrijs2005/userval/internal/server/repositories/otps"
	usersrepo "github.com/dmitrijs2005/userval/internal/server/repositories/users"
)

// --- fakes ---

type fakeUsersRepo struct {
	users     map[string]*models.User // by id
	createErr error
	markErr   error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	u, ok := f.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

type fakeOTPRepo struct {
	recs      []*models.OTPRecord
	createErr error
	deleteErr error
}

func (f *fakeOTPRepo) Create(ctx context.Context, rec *models.OTPRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeOTPRepo) FindLatestByUser(ctx context.Context, userID string) (*models.OTPRecord, error) {
	var latest *models.OTPRecord
	for _, r := range f.recs {
		if r.UserID != userID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, common.ErrNotFound
	}
	return latest, nil
}

func (f *fakeOTPRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.recs[:0]
	for _, r := range f.recs {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	f.recs = kept
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	o *fakeOTPRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) OTPs(db dbx.DBTX) otpsrepo.Repository        { return m.o }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

type fakeNotifier struct {
	sent []mailer.Email
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, email mailer.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestService(t *testing.T, db *sql.DB, rm *fakeRepoManager, n *fakeNotifier) *Service {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "test-secret",
		SessionTokenValidityDuration: 24 * time.Hour,
		OTPValidityDuration:          2 * time.Minute,
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(db, rm, n, logger, cfg)
}

func hashOf(t *testing.T, s string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func withFixedOTP(t *testing.T, code string) {
	t.Helper()
	orig := generateOTP
	generateOTP = func() (string, error) { return code, nil }
	t.Cleanup(func() { generateOTP = orig })
}

func addUser(rm *fakeRepoManager, id, email, passwordHash string, verified bool) *models.User {
	u := &models.User{
		ID:            id,
		Email:         email,
		PasswordHash:  passwordHash,
		EmailVerified: verified,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	rm.u.users[id] = u
	return u
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	n := &fakeNotifier{}
	s := newTestService(t, db, rm, n)
	withFixedOTP(t, "042137")

	id, err := s.Register(context.Background(), "Alice@Example.COM", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	user, ok := rm.u.users[id]
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.EmailVerified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	require.Len(t, rm.o.recs, 1)
	assert.Equal(t, id, rm.o.recs[0].UserID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rm.o.recs[0].OTPHash), []byte("042137")))

	require.Len(t, n.sent, 1)
	assert.Equal(t, "alice@example.com", n.sent[0].To)
	assert.Contains(t, n.sent[0].HTML, "042137")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)

	_, err := s.Register(context.Background(), "ALICE@example.com", "secret1")
	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.Equal(t, "Email already exist. Please login", err.Error())
}

func TestRegister_DuplicateRace(t *testing.T) {
	// Advisory check passes but the unique index rejects the insert.
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	rm.u.createErr = common.ErrConflict
	s := newTestService(t, db, rm, &fakeNotifier{})

	_, err := s.Register(context.Background(), "alice@example.com", "secret1")
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestRegister_NotifierFailureKeepsUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	n := &fakeNotifier{err: errors.New("smtp down")}
	s := newTestService(t, db, rm, n)

	id, err := s.Register(context.Background(), "alice@example.com", "secret1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInternal))
	assert.Equal(t, "Failed to send verification email", err.Error())

	// user and OTP stay persisted so a later regeneration recovers
	assert.Contains(t, rm.u.users, id)
	assert.Len(t, rm.o.recs, 1)
}

func TestRegister_ValidationError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})

	_, err := s.Register(context.Background(), "alice@example.com", "short")
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Empty(t, rm.u.users)
}

// --- Login ---

func TestLogin_UserNotFound(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})

	_, err := s.Login(context.Background(), "ghost@example.com", "secret1")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "User not found", err.Error())
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), true)

	_, err := s.Login(context.Background(), "alice@example.com", "wrong-pass")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.Equal(t, "Invalid Password", err.Error())
}

func TestLogin_UnverifiedGetsFreshOTP(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	n := &fakeNotifier{}
	s := newTestService(t, db, rm, n)
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)

	result, err := s.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, result.NeedsVerification)
	assert.Equal(t, "u1", result.UnverifiedUserID)
	assert.Nil(t, result.User)
	assert.Empty(t, result.Token)

	assert.Len(t, rm.o.recs, 1)
	assert.Len(t, n.sent, 1)
}

func TestLogin_VerifiedIssuesToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), true)

	result, err := s.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, result.NeedsVerification)
	require.NotNil(t, result.User)
	assert.Empty(t, result.User.PasswordHash)

	claims, err := auth.ParseToken(result.Token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.EmailVerified)
}

func TestLogin_CaseInsensitiveEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "foo@bar.com", hashOf(t, "secret1"), true)

	result, err := s.Login(context.Background(), "Foo@Bar.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", result.User.ID)
}

// --- VerifyOTP ---

func TestVerifyOTP_UserNotFound(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})

	_, _, err := s.VerifyOTP(context.Background(), "missing", "123456")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "User not found", err.Error())
}

func TestVerifyOTP_NoRecords(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)

	_, _, err := s.VerifyOTP(context.Background(), "u1", "123456")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "OTP not found", err.Error())
}

func TestVerifyOTP_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)

	created := time.Now()
	rm.o.recs = append(rm.o.recs, &models.OTPRecord{
		UserID: "u1", OTPHash: hashOf(t, "123456"), CreatedAt: created,
	})
	s.now = func() time.Time { return created.Add(2*time.Minute + time.Second) }

	// even the correct code fails once the window passed
	_, _, err := s.VerifyOTP(context.Background(), "u1", "123456")
	assert.True(t, errors.Is(err, common.ErrOTPExpired))
	assert.Equal(t, "OTP has expired", err.Error())
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)
	rm.o.recs = append(rm.o.recs, &models.OTPRecord{
		UserID: "u1", OTPHash: hashOf(t, "123456"), CreatedAt: time.Now(),
	})

	_, _, err := s.VerifyOTP(context.Background(), "u1", "654321")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.Equal(t, "Invalid OTP", err.Error())
}

func TestVerifyOTP_ChecksMostRecentRecord(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)

	now := time.Now()
	rm.o.recs = append(rm.o.recs,
		&models.OTPRecord{UserID: "u1", OTPHash: hashOf(t, "111111"), CreatedAt: now.Add(-time.Minute)},
		&models.OTPRecord{UserID: "u1", OTPHash: hashOf(t, "222222"), CreatedAt: now},
	)

	// the older code no longer matches
	_, _, err := s.VerifyOTP(context.Background(), "u1", "111111")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))

	_, _, err = s.VerifyOTP(context.Background(), "u1", "222222")
	assert.NoError(t, err)
}

func TestVerifyOTP_SuccessIsOneShot(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)
	rm.o.recs = append(rm.o.recs, &models.OTPRecord{
		UserID: "u1", OTPHash: hashOf(t, "123456"), CreatedAt: time.Now(),
	})

	user, token, err := s.VerifyOTP(context.Background(), "u1", "123456")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.Empty(t, user.PasswordHash)
	assert.Empty(t, rm.o.recs)

	claims, err := auth.ParseToken(token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	// replaying the same code finds no records left
	_, _, err = s.VerifyOTP(context.Background(), "u1", "123456")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "OTP not found", err.Error())

	require.NoError(t, mock.ExpectationsWereMet())
}

// --- RegenerateOTP ---

func TestRegenerateOTP_UserNotFound(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})

	_, err := s.RegenerateOTP(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestRegenerateOTP_AlreadyVerified(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	s := newTestService(t, db, rm, &fakeNotifier{})
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), true)

	_, err := s.RegenerateOTP(context.Background(), "u1")
	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.Equal(t, "Email already verified", err.Error())
}

func TestRegenerateOTP_ReplacesOutstandingCodes(t *testing.T) {
	db, _ := newSQLMockDB(t)
	rm := &fakeRepoManager{u: newFakeUsersRepo(), o: &fakeOTPRepo{}}
	n := &fakeNotifier{}
	s := newTestService(t, db, rm, n)
	addUser(rm, "u1", "alice@example.com", hashOf(t, "secret1"), false)
	rm.o.recs = append(rm.o.recs,
		&models.OTPRecord{UserID: "u1", OTPHash: hashOf(t, "111111"), CreatedAt: time.Now().Add(-time.Minute)},
		&models.OTPRecord{UserID: "u1", OTPHash: hashOf(t, "222222"), CreatedAt: time.Now()},
	)
	withFixedOTP(t, "333333")

	email, err := s.RegenerateOTP(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	require.Len(t, rm.o.recs, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rm.o.recs[0].OTPHash), []byte("333333")))
	assert.Len(t, n.sent, 1)
}
