package models

// Attachment stores file metadata for a task. Byte storage is handled by an
// external collaborator; only the descriptor lives here. UploadedBy carries
// uploader-only delete rights.
type Attachment struct {
	BaseModel

	TaskID       string `gorm:"type:uuid;not null;index" json:"task_id"`
	UploadedBy   string `gorm:"type:uuid;not null" json:"uploaded_by"`
	Filename     string `gorm:"not null" json:"filename"`
	OriginalName string `gorm:"not null" json:"original_name"`
	Path         string `gorm:"not null" json:"path"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`

	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}
