package models

// UserProfile defines the structure for user profiles
type UserProfile struct {
	UserID    string   `dynamodbav:"userId" json:"userId"` // Partition Key
	Name      string   `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Age       int      `dynamodbav:"age,omitempty" json:"age,omitempty"`
	Bio       string   `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	ImageURL  string   `dynamodbav:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	SeenUsers []string `dynamodbav:"seenUsers,stringset,omitempty" json:"-"` // ids already judged, append-only
	CreatedAt string   `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// PublicProfile is the projection of a profile exposed to other users.
type PublicProfile struct {
	UserID   string `json:"userId"`
	Name     string `json:"name,omitempty"`
	Age      int    `json:"age,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Public strips private fields (seen set) from a stored profile.
func (p UserProfile) Public() PublicProfile {
	return PublicProfile{
		UserID:   p.UserID,
		Name:     p.Name,
		Age:      p.Age,
		ImageURL: p.ImageURL,
		Bio:      p.Bio,
	}
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "Users"
