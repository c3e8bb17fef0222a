package gateway

// Room names are opaque, case-sensitive strings; the prefix convention
// below exists for humans reading logs, not for the registry.

const (
	RoomTypeWorkCenter = "work_center"
	RoomTypeDepartment = "department"
	RoomTypeLine       = "line"
	RoomTypeCustom     = "custom"
)

var allowedRoomTypes = map[string]struct{}{
	RoomTypeWorkCenter: {},
	RoomTypeDepartment: {},
	RoomTypeLine:       {},
	RoomTypeCustom:     {},
}

func ValidRoomType(roomType string) bool {
	_, ok := allowedRoomTypes[roomType]
	return ok
}

func TenantRoom(tenantID string) string {
	return "tenant:" + tenantID
}

func UserRoom(userID string) string {
	return "user:" + userID
}

func RoleRoom(tenantID, role string) string {
	return "role:" + tenantID + ":" + role
}

func EventRoom(tenantID, event string) string {
	return "event:" + tenantID + ":" + event
}

func WorkCenterRoom(tenantID, workCenterID string) string {
	return TypedRoom(RoomTypeWorkCenter, tenantID, workCenterID)
}

func TypedRoom(roomType, tenantID, name string) string {
	return roomType + ":" + tenantID + ":" + name
}
