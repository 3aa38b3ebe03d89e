package model

import "time"

// RADIUS attribute names as understood by the authentication server and the NAS dictionary.
const (
	AttrCleartextPassword = "Cleartext-Password"
	AttrExpiration        = "Expiration"
	AttrAuthType          = "Auth-Type"
	AttrSessionTimeout    = "Session-Timeout"
	AttrIdleTimeout       = "Idle-Timeout"
	AttrRateLimit         = "Mikrotik-Rate-Limit"
	AttrBandwidthDown     = "WISPr-Bandwidth-Max-Down"
	AttrBandwidthUp       = "WISPr-Bandwidth-Max-Up"
	AttrTotalLimit        = "Mikrotik-Total-Limit"
	AttrTotalLimitGiga    = "Mikrotik-Total-Limit-Gigawords"

	AuthTypeReject = "Reject"

	OpSet = ":="
	OpEq  = "="
)

// IdleTimeoutSeconds is written for every activation.
const IdleTimeoutSeconds = 300

type RadiusTable string

const (
	RadCheck RadiusTable = "radcheck" // authentication checks
	RadReply RadiusTable = "radreply" // authorization replies
)

// RadiusAttribute is one (username, attribute) row of radcheck or radreply.
type RadiusAttribute struct {
	Username  string `json:"username"`
	Attribute string `json:"attribute"`
	Op        string `json:"op"`
	Value     string `json:"value"`
}

type RadiusStatus string

const (
	RadiusStatusDisabled RadiusStatus = "DISABLED"
	RadiusStatusExpired  RadiusStatus = "EXPIRED"
	RadiusStatusActive   RadiusStatus = "ACTIVE"
	RadiusStatusUnknown  RadiusStatus = "UNKNOWN"
)

// AccountingSession is a radacct row.
type AccountingSession struct {
	SessionID      string     `json:"session_id"`
	Username       string     `json:"username"`
	NASIPAddress   string     `json:"nas_ip_address"`
	FramedIP       string     `json:"framed_ip_address,omitempty"`
	CallingStation string     `json:"calling_station_id,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	StopTime       *time.Time `json:"stop_time,omitempty"` // nil while the session is open
	SessionTime    int64      `json:"session_time"`        // seconds
	InputOctets    int64      `json:"input_octets"`        // uploaded by the client
	OutputOctets   int64      `json:"output_octets"`       // downloaded by the client
}

// ActivationParams describes what RADIUS should enforce for a credential.
type ActivationParams struct {
	Username      string
	Password      string
	Minutes       int
	SpeedDownKbps *int
	SpeedUpKbps   *int
	DataMB        *int64
	RateLimit     string    // legacy "NNNNk/NNNNk" fallback for speeds
	Start         time.Time // start of the access window; zero means now
}

// ParamsForPlan maps a plan onto activation parameters for a voucher code.
func ParamsForPlan(code string, p *Plan) ActivationParams {
	return ActivationParams{
		Username:      code,
		Password:      code,
		Minutes:       p.DurationMinutes,
		SpeedDownKbps: p.SpeedDownKbps,
		SpeedUpKbps:   p.SpeedUpKbps,
		DataMB:        p.DataLimitMB,
		RateLimit:     p.RateLimit,
	}
}

// Activation is what RADIUS was told to enforce.
type Activation struct {
	Username       string    `json:"username"`
	ExpiresAt      time.Time `json:"expires_at"`
	SessionSeconds int64     `json:"session_seconds"`
	SpeedDownKbps  *int      `json:"speed_down_kbps,omitempty"`
	SpeedUpKbps    *int      `json:"speed_up_kbps,omitempty"`
	DataLimitBytes *int64    `json:"data_limit_bytes,omitempty"`
}

// VoucherStatusReport is the derived RADIUS-side view of a credential.
type VoucherStatusReport struct {
	Username    string             `json:"username"`
	Status      RadiusStatus       `json:"status"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
	Attributes  []RadiusAttribute  `json:"attributes"`
	LastSession *AccountingSession `json:"last_session,omitempty"`
}

// UsageStats aggregates every accounting record of a user.
type UsageStats struct {
	Username       string     `json:"username"`
	SessionCount   int64      `json:"session_count"`
	DownloadBytes  int64      `json:"download_bytes"`
	UploadBytes    int64      `json:"upload_bytes"`
	SessionSeconds int64      `json:"session_seconds"`
	FirstSessionAt *time.Time `json:"first_session_at,omitempty"`
	LastSessionAt  *time.Time `json:"last_session_at,omitempty"`
}
