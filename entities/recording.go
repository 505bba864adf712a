package entities

import "time"

// Recording is one uploaded media file. Filename is the blob storage key and
// URL the relative locator derived from it; neither changes after insert.
type Recording struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" gorm:"type:text"`
	Filename  string    `json:"filename" gorm:"type:text;not null;uniqueIndex:idx_recordings_filename"`
	Size      int64     `json:"size" gorm:"not null"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (Recording) TableName() string {
	return "recordings"
}
