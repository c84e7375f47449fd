package store

import (
	"context"
	"fmt"

	"food-delivery/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateUser inserts a user together with the profile its role needs
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, user, `
			INSERT INTO users (email, username, first_name, last_name, phone, role, password_hash, otp_secret)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			user.Email, user.Username, user.FirstName, user.LastName, user.Phone, user.Role,
			user.PasswordHash, user.OTPSecret)
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, models.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		switch user.Role {
		case models.RoleRider:
			_, err = tx.ExecContext(ctx, "INSERT INTO rider_profiles (user_id) VALUES ($1)", user.ID)
		case models.RoleCustomer:
			_, err = tx.ExecContext(ctx,
				"INSERT INTO customer_profiles (user_id, phone) VALUES ($1, $2)", user.ID, user.Phone)
		}
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email); err != nil {
		return nil, notFound(err, "user", email)
	}
	return &user, nil
}

// UpdateOTP stores a new OTP secret and verification flag
func (s *Store) UpdateOTP(ctx context.Context, userID int64, secret string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET otp_secret = $1, otp_verified = $2, updated_at = NOW() WHERE id = $3",
		secret, verified, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, "user", userID)
}

// GetRiderProfile retrieves a rider's profile
func (s *Store) GetRiderProfile(ctx context.Context, userID int64) (*models.RiderProfile, error) {
	var profile models.RiderProfile
	if err := s.db.GetContext(ctx, &profile, "SELECT * FROM rider_profiles WHERE user_id = $1", userID); err != nil {
		return nil, notFound(err, "rider profile", userID)
	}
	return &profile, nil
}

// GetCustomerProfile retrieves a customer's profile
func (s *Store) GetCustomerProfile(ctx context.Context, userID int64) (*models.CustomerProfile, error) {
	var profile models.CustomerProfile
	if err := s.db.GetContext(ctx, &profile, "SELECT * FROM customer_profiles WHERE user_id = $1", userID); err != nil {
		return nil, notFound(err, "customer profile", userID)
	}
	return &profile, nil
}
