package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	// encryptedHeader prefixes encrypted backups.
	encryptedHeader = "BINDENC1"

	// Argon2id parameters (RFC 9106 second recommendation).
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32

	saltLength = 32
)

// ErrWrongPassword is returned when an encrypted backup cannot be opened.
var ErrWrongPassword = errors.New("wrong password or corrupted backup")

// BackupOptions configures Backup.
type BackupOptions struct {
	// Dir defaults to a "backups" directory next to the database.
	Dir string

	// Name defaults to backup_<timestamp>.
	Name string

	// Password, when set, encrypts the backup with AES-256-GCM under an
	// Argon2id key. The plain copy is removed.
	Password string
}

// BackupInfo describes a written backup.
type BackupInfo struct {
	Path      string
	Size      int64
	Checksum  string // SHA-256 of the written file
	Encrypted bool
}

// Backup writes a consistent copy of the database with VACUUM INTO, checks
// that the copy opens, and optionally encrypts it.
func (db *DB) Backup(ctx context.Context, opts BackupOptions) (*BackupInfo, error) {
	dir := opts.Dir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(db.path), "backups")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = "backup_" + time.Now().Format("20060102_150405")
	}
	path := filepath.Join(dir, name+".db")

	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	if err := verifyBackup(ctx, path); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	info := &BackupInfo{Path: path}
	if opts.Password != "" {
		encPath := path + ".enc"
		if err := encryptFile(path, encPath, opts.Password); err != nil {
			_ = os.Remove(path)
			return nil, err
		}
		_ = os.Remove(path)
		info.Path = encPath
		info.Encrypted = true
	}

	stat, err := os.Stat(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	info.Size = stat.Size()
	if info.Checksum, err = checksum(info.Path); err != nil {
		return nil, err
	}
	return info, nil
}

// DecryptBackup writes the plain database of an encrypted backup to dst.
func DecryptBackup(src, dst, password string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if !bytes.HasPrefix(data, []byte(encryptedHeader)) {
		return fmt.Errorf("%s is not an encrypted backup", src)
	}

	plain, err := decrypt(data[len(encryptedHeader):], password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, plain, 0o600); err != nil {
		return fmt.Errorf("failed to write decrypted backup: %w", err)
	}
	return nil
}

// RestoreBackup replaces the database at dbPath with the backup at src,
// decrypting it first when it is encrypted. The database must not be open.
func RestoreBackup(ctx context.Context, src, dbPath, password string) error {
	encrypted, err := isEncrypted(src)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	tmp := dbPath + ".restore"
	defer func() { _ = os.Remove(tmp) }()

	if encrypted {
		if err := DecryptBackup(src, tmp, password); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read backup: %w", err)
		}
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return fmt.Errorf("failed to stage backup: %w", err)
		}
	}

	if err := verifyBackup(ctx, tmp); err != nil {
		return fmt.Errorf("backup verification failed: %w", err)
	}

	// Stale WAL pages would be replayed over the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", dbPath+suffix, err)
		}
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		return fmt.Errorf("failed to replace database: %w", err)
	}
	return nil
}

func isEncrypted(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, len(encryptedHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return string(header) == encryptedHeader, nil
}

func verifyBackup(ctx context.Context, path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	var n int
	return conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n)
}

func encryptFile(src, dst, password string) error {
	plain, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	// header | salt | nonce | ciphertext+tag
	out := make([]byte, 0, len(encryptedHeader)+saltLength+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, encryptedHeader...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plain, nil)

	if err := os.WriteFile(dst, out, 0o600); err != nil {
		return fmt.Errorf("failed to write encrypted backup: %w", err)
	}
	return nil
}

func decrypt(data []byte, password string) ([]byte, error) {
	if len(data) < saltLength {
		return nil, ErrWrongPassword
	}
	salt, rest := data[:saltLength], data[saltLength:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrWrongPassword
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plain, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
