package model

// Spot is the bookable resource. Spots are owned by exactly one user and are
// managed by an external spots service; this service only reads them.
type Spot struct {
	ID           string  `json:"id" bson:"_id,omitempty"`
	OwnerID      string  `json:"ownerId" bson:"owner_id"`
	Name         string  `json:"name" bson:"name"`
	Address      string  `json:"address" bson:"address"`
	PreviewImage *string `json:"previewImage" bson:"preview_image,omitempty"`
}

// SpotSummary is the nested spot shape attached to a user's bookings.
type SpotSummary struct {
	ID           string  `json:"id" bson:"_id"`
	Name         string  `json:"name" bson:"name"`
	Address      string  `json:"address" bson:"address"`
	PreviewImage *string `json:"previewImage" bson:"preview_image"`
}

func (s *Spot) Summary() SpotSummary {
	return SpotSummary{
		ID:           s.ID,
		Name:         s.Name,
		Address:      s.Address,
		PreviewImage: s.PreviewImage,
	}
}
