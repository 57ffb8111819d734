package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/Donefal/Proyek-WebApp-RPL/internal/domain"
)

var ErrInvalidCredential = errors.New("QR tidak ditemukan")
var ErrCredentialExpired = errors.New("QR sudah kedaluwarsa")

type ScanAction string

const (
	ActionEnter ScanAction = "enter"
	ActionExit  ScanAction = "exit"
)

// QRService cấp và kiểm tra QR credential cho booking. Token là chuỗi opaque
// sinh từ crypto/rand; expiry = now + TTL, TTL cố định cho toàn hệ thống.
type QRService struct {
	ttl time.Duration

	// enforceExpiry là policy theo action. Mặc định: enter kiểm tra hạn,
	// exit thì không — khách đã ở trong bãi không bị kẹt lại vì QR hết hạn.
	enforceExpiry map[ScanAction]bool

	nowFn func() time.Time
}

func NewQRService(ttl time.Duration) *QRService {
	return &QRService{
		ttl: ttl,
		enforceExpiry: map[ScanAction]bool{
			ActionEnter: true,
			ActionExit:  false,
		},
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Issue sinh credential mới. 18 byte ngẫu nhiên -> 24 ký tự base64 url-safe
// (tương đương secrets.token_urlsafe).
func (s *QRService) Issue() (*domain.QRCredential, error) {
	raw := make([]byte, 18)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("lỗi sinh QR token: %w", err)
	}
	return &domain.QRCredential{
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		ExpiresAt: s.nowFn().Add(s.ttl),
	}, nil
}

// CheckFreshness áp policy hết hạn cho một action. Booking không có expiry
// (dữ liệu cũ) coi như còn hạn.
func (s *QRService) CheckFreshness(expiresAt *time.Time, action ScanAction) error {
	if !s.enforceExpiry[action] {
		return nil
	}
	if expiresAt == nil {
		return nil
	}
	if s.nowFn().After(*expiresAt) {
		return ErrCredentialExpired
	}
	return nil
}

// Expired dùng cho lazy expiry của booking pending: luôn xét hạn thật,
// không phụ thuộc action.
func (s *QRService) Expired(expiresAt *time.Time) bool {
	return expiresAt != nil && s.nowFn().After(*expiresAt)
}

func (s *QRService) TTL() time.Duration {
	return s.ttl
}
