package model

import "time"

// Worker roles. Field workers only see their own assigned patients;
// facility staff see everything.
const (
	RoleFieldWorker   = "field-worker"
	RoleFacilityStaff = "facility-staff"
)

// Worker is a community health worker identity. Credential hashes live
// in worker_auth / the pin_hash column and are never serialized.
type Worker struct {
	WorkerID    string    `db:"worker_id" json:"workerId"`
	Name        string    `db:"name" json:"name"`
	Village     string    `db:"village" json:"village"`
	Role        string    `db:"role" json:"role"`
	PinHash     string    `db:"pin_hash" json:"-"`
	PhoneNumber *string   `db:"phone_number" json:"phoneNumber,omitempty"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// WorkerWithCredentials joins the worker row with its password hash for login
type WorkerWithCredentials struct {
	Worker
	PasswordHash *string `db:"password_hash" json:"-"`
}

// Identity is the resolved caller set in the request context by the
// auth middleware.
type Identity struct {
	WorkerID string
	Role     string
}

type RegisterRequest struct {
	WorkerID    string  `json:"workerId" binding:"required"`
	Password    string  `json:"password" binding:"required,min=6"`
	Name        string  `json:"name" binding:"required"`
	Village     string  `json:"village" binding:"required"`
	Role        string  `json:"role" binding:"required,oneof=field-worker facility-staff"`
	Pin         string  `json:"pin" binding:"required,min=4,max=6,numeric"`
	PhoneNumber *string `json:"phoneNumber"`
}

type LoginRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyPinRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
}

type AuthResponse struct {
	Worker *Worker `json:"worker"`
	Token  string  `json:"token"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	Village     *string `json:"village"`
	PhoneNumber *string `json:"phoneNumber"`
}
