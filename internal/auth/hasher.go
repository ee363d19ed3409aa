package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

// Params are the argon2id cost parameters written into every hash.
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams are the production argon2id costs.
var DefaultParams = Params{Memory: 64 * 1024, Time: 1, Threads: 4, KeyLen: 32}

const (
	minSaltLen    = 8
	randomSaltLen = 16
	minKeyLen     = 4
	// upper bounds applied to parameters read back from stored hashes
	maxMemory = 1 << 20
	maxTime   = 64
)

var errSaltTooShort = errors.New("salt shorter than 8 bytes")

func (p Params) validate() error {
	switch {
	case p.Time < 1:
		return errors.New("time cost must be at least 1")
	case p.Threads < 1:
		return errors.New("parallelism must be at least 1")
	case p.KeyLen < minKeyLen:
		return fmt.Errorf("key length must be at least %d", minKeyLen)
	case p.Memory < 8*uint32(p.Threads):
		return errors.New("memory must be at least 8 KiB per lane")
	}
	return nil
}

// Hasher hashes and verifies passwords with argon2id. The process secret key is
// mixed into the input as an HMAC-SHA256 pepper, so a leaked hash cannot be
// brute-forced without it. Safe for concurrent use.
type Hasher struct {
	secret     []byte
	salt       []byte
	randomSalt bool
	params     Params
	logger     *zap.SugaredLogger
}

// NewHasher builds a Hasher from the resolved process config.
func NewHasher(cfg Config, logger *zap.SugaredLogger) *Hasher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	params := cfg.Params
	if params == (Params{}) {
		params = DefaultParams
	}
	return &Hasher{
		secret:     []byte(cfg.SecretKey),
		salt:       []byte(cfg.Salt),
		randomSalt: cfg.RandomSalt,
		params:     params,
		logger:     logger,
	}
}

// Hash returns a PHC-formatted argon2id hash of plaintext. Any failure is
// logged and reported as ErrHashFailed.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt, err := h.nextSalt()
	if err != nil {
		h.logger.Errorw("password hashing failed", "stage", "salt", "err", err)
		return "", ErrHashFailed
	}
	if err := h.params.validate(); err != nil {
		h.logger.Errorw("password hashing failed", "stage", "params", "err", err)
		return "", ErrHashFailed
	}

	p := h.params
	digest := argon2.IDKey(h.pepper(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify returns nil when plaintext matches storedHash. A mismatch and a
// corrupt hash both yield an InvalidPassword error.
func (h *Hasher) Verify(storedHash, plaintext string) error {
	ok, err := h.verify(storedHash, plaintext)
	if err != nil {
		h.logger.Debugw("stored password hash rejected", "err", err)
	}
	if !ok {
		return &Error{Kind: KindInvalidPassword}
	}
	return nil
}

func (h *Hasher) verify(storedHash, plaintext string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return false, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported hash algorithm: %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parse version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("parse params: %w", err)
	}
	if threads > 255 || memory > maxMemory || time > maxTime {
		return false, errors.New("params out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode digest: %w", err)
	}

	p := Params{Memory: memory, Time: time, Threads: uint8(threads), KeyLen: uint32(len(expected))}
	if err := p.validate(); err != nil {
		return false, err
	}
	if len(salt) < minSaltLen {
		return false, errSaltTooShort
	}

	computed := argon2.IDKey(h.pepper(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *Hasher) nextSalt() ([]byte, error) {
	if !h.randomSalt {
		if len(h.salt) < minSaltLen {
			return nil, errSaltTooShort
		}
		return h.salt, nil
	}
	salt := make([]byte, randomSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read random salt: %w", err)
	}
	return salt, nil
}

func (h *Hasher) pepper(plaintext string) []byte {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)
}
