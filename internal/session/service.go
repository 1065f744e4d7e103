// Package session はAPI認証情報を保持するサーバー側セッションのライフサイクルを提供する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/timeoff/internal/model"
	"github.com/hitoshi/timeoff/internal/repository"
)

// ErrSessionIDRequired はセッションIDが空の場合のエラー。
var ErrSessionIDRequired = errors.New("session ID is required")

// ServiceConfig はセッションサービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はセッションの作成・取得・破棄を提供する。
type Service struct {
	repo   repository.SessionRepository
	config ServiceConfig
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.SessionRepository, config ServiceConfig) *Service {
	return &Service{
		repo:   repo,
		config: config,
		now:    time.Now,
	}
}

// Create は認証情報を保持する新しいセッションを発行する。
// 3項目のうち1つでも欠けている場合はセッションを作らない。
func (s *Service) Create(ctx context.Context, creds model.Credentials) (*model.Session, error) {
	if !creds.Complete() {
		return nil, model.ErrIncompleteCredentials
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	sess := &model.Session{
		ID:          sessionID,
		Credentials: creds,
		ExpiresAt:   now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:   now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("session created", slog.String("uid", creds.UID))
	return sess, nil
}

// Find は有効なセッションを返す。未登録・期限切れの場合は (nil, nil) を返す。
func (s *Service) Find(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, nil
	}

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if sess == nil || !sess.IsAuthenticated() {
		return nil, nil
	}
	return sess, nil
}

// Destroy はセッションを破棄する。
func (s *Service) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return ErrSessionIDRequired
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("session destroyed")
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
