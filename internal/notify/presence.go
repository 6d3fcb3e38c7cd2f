package notify

import (
	"sort"
	"sync"
	"time"
)

// DefaultPresenceTTL — срок жизни отметки присутствия без продления.
const DefaultPresenceTTL = 3600 * time.Second

// PresenceTracker ведёт учёт активных устройств пользователя в памяти.
// Отметка живёт TTL с момента последней активности; просроченные записи
// вычищаются лениво при чтении.
type PresenceTracker struct {
	mu      sync.RWMutex
	devices map[string]map[string]time.Time
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		devices: make(map[string]map[string]time.Time),
	}
}

// RegisterActivity продлевает присутствие устройства на ttl;
// неположительный ttl заменяется умолчанием.
func (p *PresenceTracker) RegisterActivity(userID, deviceID string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	byDevice, ok := p.devices[userID]
	if !ok {
		byDevice = make(map[string]time.Time)
		p.devices[userID] = byDevice
	}
	byDevice[deviceID] = time.Now().Add(ttl)
}

// ActiveDevices возвращает отсортированный список живых устройств
// пользователя, попутно удаляя просроченные отметки.
func (p *PresenceTracker) ActiveDevices(userID string) []string {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	byDevice, ok := p.devices[userID]
	if !ok {
		return nil
	}

	active := make([]string, 0, len(byDevice))
	for deviceID, expiresAt := range byDevice {
		if now.After(expiresAt) {
			delete(byDevice, deviceID)
			continue
		}
		active = append(active, deviceID)
	}

	if len(byDevice) == 0 {
		delete(p.devices, userID)
	}

	sort.Strings(active)
	return active
}

// ActiveCount — число живых устройств пользователя.
func (p *PresenceTracker) ActiveCount(userID string) int {
	return len(p.ActiveDevices(userID))
}

// Forget снимает отметку присутствия устройства, не дожидаясь TTL.
func (p *PresenceTracker) Forget(userID, deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byDevice, ok := p.devices[userID]
	if !ok {
		return
	}
	delete(byDevice, deviceID)
	if len(byDevice) == 0 {
		delete(p.devices, userID)
	}
}
