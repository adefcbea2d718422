package scanner

import (
	"sync"
	"time"

	blelib "github.com/go-ble/ble"

	"github.com/srg/blelock/internal/gatt"
)

// DeviceInfo is a snapshot of one advertising peripheral, refreshed on
// every advertisement received during a scan.
type DeviceInfo struct {
	mu sync.Mutex

	Address     string    `json:"address"`
	Name        string    `json:"name"`
	RSSI        int       `json:"rssi"`
	Connectable bool      `json:"connectable"`
	Services    []string  `json:"services"`
	LastSeen    time.Time `json:"lastSeen"`
}

func NewDeviceInfo(adv blelib.Advertisement) *DeviceInfo {
	d := &DeviceInfo{Address: adv.Addr().String()}
	d.Update(adv)
	return d
}

// Update refreshes the snapshot from a newer advertisement. The name
// is kept when a later advertisement omits it, as scan responses often
// do.
func (d *DeviceInfo) Update(adv blelib.Advertisement) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name := adv.LocalName(); name != "" {
		d.Name = name
	}
	d.RSSI = adv.RSSI()
	d.Connectable = adv.Connectable()

	services := make([]string, 0, len(adv.Services()))
	for _, u := range adv.Services() {
		services = append(services, gatt.UUID16(u.String()))
	}
	d.Services = services
	d.LastSeen = time.Now()
}

// AdvertisesService reports whether the last advertisement carried the
// service UUID, in any accepted form.
func (d *DeviceInfo) AdvertisesService(uuid string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	want := gatt.UUID16(uuid)
	for _, s := range d.Services {
		if s == want {
			return true
		}
	}
	return false
}
