package domain

// Staff Model
type Staff struct {
	ID       uint   `gorm:"primaryKey"`       // Primary key
	Email    string `gorm:"unique;not null"`  // Unique login email
	Password string `gorm:"not null"`         // Hashed password
	Role     string `gorm:"default:staff"`    // Role: staff or admin
	VenueID  string `gorm:"size:64"`          // Venue the staff member works at
}
