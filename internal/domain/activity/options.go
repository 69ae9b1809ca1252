package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	SessionID    string
	CartItemID   *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
