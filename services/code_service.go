package services

import (
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"sprintarena-api/models"
	"sprintarena-api/repositories"
)

// Visually ambiguous characters (0/O, 1/I) are excluded from the alphabet.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength      = 6
	maxCodeAttempts = 100
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// CodeService allocates and resolves the short human-readable join codes.
type CodeService struct {
	repo repositories.RoomRepository
}

func NewCodeService(repo repositories.RoomRepository) *CodeService {
	return &CodeService{repo: repo}
}

// GenerateCode returns a random 6-character code.
func (s *CodeService) GenerateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}

// AssignCode gives the room a unique code, generating one if it has none.
// Idempotent: an already-coded room keeps its code. After persisting, the
// room is read back to confirm the store actually kept the code; a code the
// store dropped is never handed to a caller.
func (s *CodeService) AssignCode(roomID string) (string, error) {
	room, err := s.repo.Get(roomID)
	if err != nil {
		return "", err
	}

	if room.Code != nil && *room.Code != "" {
		return *room.Code, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.GenerateCode()

		if _, err := s.repo.FindByCode(code); err == nil {
			continue // collision, try again
		} else if !errors.Is(err, repositories.ErrRoomNotFound) {
			return "", err
		}

		room.Code = &code
		if err := s.repo.Set(roomID, room); err != nil {
			return "", err
		}

		persisted, err := s.repo.Get(roomID)
		if err != nil {
			return "", err
		}
		if persisted.Code == nil || *persisted.Code != code {
			log.Error().Str("room_id", roomID).Str("code", code).
				Msg("room code missing after write-back verification")
			return "", ErrCodeNotPersisted
		}

		return code, nil
	}

	// The code space is sparse enough that exhaustion indicates a deeper
	// fault, not legitimate contention.
	return "", ErrCodeExhausted
}

// NormalizeCode uppercases and trims the input and enforces the 6-character
// alphanumeric format. A malformed code is a validation error, distinct from
// a code that simply doesn't resolve.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	return code, nil
}

// ResolveCode looks up the room holding the given code. This is the single
// canonical code-join path.
func (s *CodeService) ResolveCode(raw string) (*models.Room, error) {
	code, err := NormalizeCode(raw)
	if err != nil {
		return nil, err
	}

	return s.repo.FindByCode(code)
}
