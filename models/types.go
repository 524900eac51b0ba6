package models

import (
	"encoding/json"
	"time"
)

// Role constants
const (
	RoleAdmin    = "admin"
	RoleSupplier = "supplier"
	RoleConsumer = "consumer"
)

// Water request status constants
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestDelivered = "delivered"
	RequestCancelled = "cancelled"
)

// Offer status constants
const (
	OfferActive   = "active"
	OfferAccepted = "accepted"
	OfferRejected = "rejected"
	OfferExpired  = "expired"
)

// Notification kinds
const (
	KindOfferExpired  = "offer_expired"
	KindOfferReceived = "offer_received"
	KindOfferAccepted = "offer_accepted"
)

// Push platform constants
const (
	PlatformWeb     = "web"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Request types

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateWaterRequest struct {
	VolumeLiters    int        `json:"volume_liters"`
	DeliveryAddress string     `json:"delivery_address"`
	PreferredDate   *time.Time `json:"preferred_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	// ClientRef is set by offline clients so replays map to the original request.
	ClientRef string `json:"client_ref,omitempty"`
}

type CreateOfferRequest struct {
	RequestID       string `json:"request_id"`
	PriceCents      int    `json:"price_cents"`
	ValidForMinutes int    `json:"valid_for_minutes,omitempty"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type PushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Platform string `json:"platform"`
}

// Response types

type SessionResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Home   string `json:"home"`
}

// SubmissionResponse is the envelope returned by the request-creation endpoint.
// Offline clients treat anything other than Success == true as retryable.
type SubmissionResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type CreatedRequestData struct {
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

type CreateOfferResponse struct {
	OfferID   string    `json:"offer_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AcceptOfferResponse struct {
	OfferID   string `json:"offer_id"`
	RequestID string `json:"request_id"`
	Rejected  int    `json:"rejected_offers"`
}

type SweepResponse struct {
	ExpiredCount int   `json:"expired_count"`
	DurationMS   int64 `json:"duration_ms"`
}

type SweepErrorResponse struct {
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

type LoginEntry struct {
	Page     string `json:"page"`
	Endpoint string `json:"endpoint"`
	ReturnTo string `json:"return_to,omitempty"`
}

type Dashboard struct {
	Role          string `json:"role"`
	UserID        string `json:"user_id"`
	FullName      string `json:"full_name"`
	Unread        int    `json:"unread_notifications"`
	OpenRequests  int    `json:"open_requests"`
	ActiveOffers  int    `json:"active_offers"`
	ExpiredOffers int    `json:"expired_offers"`
}

// Domain types

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type WaterRequest struct {
	ID              string     `json:"id"`
	ConsumerID      string     `json:"consumer_id"`
	VolumeLiters    int        `json:"volume_liters"`
	DeliveryAddress string     `json:"delivery_address"`
	PreferredDate   *time.Time `json:"preferred_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Offer struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	SupplierID string    `json:"supplier_id"`
	PriceCents int       `json:"price_cents"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExpiredOffer is an offer the sweep just moved to expired, joined with
// enough of its request to describe it to the supplier.
type ExpiredOffer struct {
	OfferID         string
	SupplierID      string
	RequestID       string
	PriceCents      int
	VolumeLiters    int
	DeliveryAddress string
}

type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipient_id"`
	Kind        string     `json:"kind"`
	Message     string     `json:"message"`
	OfferID     *string    `json:"offer_id,omitempty"`
	RequestID   *string    `json:"request_id,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PushSubscription struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
