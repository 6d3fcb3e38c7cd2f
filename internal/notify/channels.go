package notify

import "fmt"

// UserChannel — канал всех устройств пользователя.
func UserChannel(userID string) string {
	return fmt.Sprintf("sync:user:%s", userID)
}

// DeviceChannel — адресный канал конкретного устройства.
func DeviceChannel(userID, deviceID string) string {
	return fmt.Sprintf("sync:user:%s:device:%s", userID, deviceID)
}
