package db

// Job lifecycle states.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job types handled by the pipeline.
const (
	JobTypeDownload      = "download"
	JobTypeUpload        = "upload"
	JobTypeCaption       = "caption"
	JobTypeBurn          = "burn"
	JobTypeSplitScenes   = "split_scenes"
	JobTypeSplitFixed    = "split_fixed"
	JobTypeTrim          = "trim"
	JobTypeConvertAspect = "convert_aspect"
	JobTypeBrowserImport = "browser_import"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Passcode  string `json:"passcode"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Project struct {
	ID          string  `json:"id"`
	UserID      *string `json:"user_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	IsDeleted   bool    `json:"is_deleted"`
}

type Video struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"project_id"`
	Title         string   `json:"title"`
	Filename      string   `json:"filename"`
	SourceURL     *string  `json:"source_url"`
	Duration      *float64 `json:"duration"`
	Width         *int64   `json:"width"`
	Height        *int64   `json:"height"`
	SizeBytes     *int64   `json:"size_bytes"`
	IsClip        bool     `json:"is_clip"`
	ParentVideoID *string  `json:"parent_video_id"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	IsDeleted     bool     `json:"is_deleted"`
}

type Job struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Priority     int     `json:"priority"`
	ProjectID    *string `json:"project_id"`
	VideoID      *string `json:"video_id"`
	InputData    JSONMap `json:"input_data"`
	OutputData   JSONMap `json:"output_data"`
	Progress     int     `json:"progress"`
	ErrorMessage *string `json:"error_message"`
	RetryCount   int     `json:"retry_count"`
	MaxRetries   int     `json:"max_retries"`
	CreatedAt    string  `json:"created_at"`
	StartedAt    *string `json:"started_at"`
	CompletedAt  *string `json:"completed_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type Caption struct {
	ID        string  `json:"id"`
	VideoID   string  `json:"video_id"`
	Filename  string  `json:"filename"`
	Language  string  `json:"language"`
	Format    string  `json:"format"`
	Style     JSONMap `json:"style"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	IsDeleted bool    `json:"is_deleted"`
}
