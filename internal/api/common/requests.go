package common

// UserInfo describes the device reporting a version. It is only used for
// logging and metrics labels.
type UserInfo struct {
	Timezone    string `json:"timezone,omitempty" validate:"omitempty,max=64"`
	CountryCode string `json:"countryCode,omitempty" validate:"omitempty,max=8"`
	DeviceUUID  string `json:"deviceUuid,omitempty" validate:"omitempty,max=64"`
}

// CheckRequest is the optional JSON body of a version check
type CheckRequest struct {
	User UserInfo `json:"user"`
}
