package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user. The password must already be hashed.
func (u *User) CreateUser(db *sql.DB) error {
	stmt, err := db.Prepare(`INSERT INTO users (username, password, email) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(u.Username, u.Password, u.Email)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	row := db.QueryRow(`SELECT id, username, password, email FROM users WHERE username = ?`, username)
	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	row := db.QueryRow(`SELECT id, username, password, email FROM users WHERE email = ?`, email)
	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// SetPasswordResetToken stores a one-time reset token and its expiry.
func SetPasswordResetToken(db *sql.DB, userID int64, token string, expiresAt time.Time) error {
	_, err := db.Exec(
		`UPDATE users SET password_reset_token = ?, password_reset_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expiresAt, userID)
	return err
}

// ResetPasswordByToken updates the password for a valid, unexpired reset
// token and clears the token.
func ResetPasswordByToken(db *sql.DB, token, hashedPassword string) error {
	res, err := db.Exec(
		`UPDATE users SET password = ?, password_reset_token = NULL, password_reset_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`,
		hashedPassword, token, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("invalid or expired reset token")
	}
	return nil
}

// CreateSession inserts a new session.
func CreateSession(db *sql.DB, session *Session) error {
	stmt, err := db.Prepare(`INSERT INTO sessions
		(user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	session.CreatedAt = time.Now()
	_, err = stmt.Exec(session.UserID, session.Token, session.RefreshToken,
		session.UserAgent, session.ClientIP, session.IsBlocked,
		session.ExpiresAt, session.CreatedAt)
	return err
}

// GetSessionByToken retrieves an active, non-blocked session by access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	row := db.QueryRow(`SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
		FROM sessions WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`, token, time.Now())
	var session Session
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &session.RefreshToken,
		&session.UserAgent, &session.ClientIP, &session.IsBlocked,
		&session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByRefreshToken finds the session a refresh request rotates.
// Refresh tokens are opaque random strings, only the sessions table can vouch
// for them.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	row := db.QueryRow(`SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
		FROM sessions WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`, refreshToken, time.Now())
	var session Session
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &session.RefreshToken,
		&session.UserAgent, &session.ClientIP, &session.IsBlocked,
		&session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// DeleteSessionByToken removes a session. A missing session is not an error;
// logout must succeed even after expiry.
func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
