package state

import (
	"sync"

	"github.com/meshwire/meshwire/internal/protocol"
)

// ControllerInfo is a point-in-time copy of the controller attributes.
type ControllerInfo struct {
	HomeID             uint32
	OwnNodeID          byte
	Library            string
	LibraryType        byte
	APIVersion         byte
	ChipType           byte
	ChipVersion        byte
	Secondary          bool
	StaticUpdateCtrl   bool
	SISPresent         bool
	SupportedFunctions []protocol.FunctionType
}

// Controller guards the controller attributes with a reader-writer lock:
// many concurrent readers, one writer during initialization or a role
// change.
type Controller struct {
	mu   sync.RWMutex
	info ControllerInfo
}

func NewController() *Controller {
	return &Controller{}
}

// Snapshot returns a copy; callers never see the live struct.
func (c *Controller) Snapshot() ControllerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := c.info
	info.SupportedFunctions = append([]protocol.FunctionType(nil), c.info.SupportedFunctions...)
	return info
}

func (c *Controller) HomeID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.HomeID
}

func (c *Controller) OwnNodeID() byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.OwnNodeID
}

func (c *Controller) SetIdentity(homeID uint32, ownNodeID byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.HomeID = homeID
	c.info.OwnNodeID = ownNodeID
}

func (c *Controller) SetVersion(library string, libraryType byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.Library = library
	c.info.LibraryType = libraryType
}

func (c *Controller) SetAPIInfo(apiVersion, chipType, chipVersion byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.APIVersion = apiVersion
	c.info.ChipType = chipType
	c.info.ChipVersion = chipVersion
}

func (c *Controller) SetRoles(secondary, staticUpdateCtrl, sisPresent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.Secondary = secondary
	c.info.StaticUpdateCtrl = staticUpdateCtrl
	c.info.SISPresent = sisPresent
}

func (c *Controller) SetSupportedFunctions(fns []protocol.FunctionType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.SupportedFunctions = append([]protocol.FunctionType(nil), fns...)
}

// Supports reports whether the controller advertised fn. Unknown until
// SetSupportedFunctions ran; an empty set reads as "unknown, assume yes".
func (c *Controller) Supports(fn protocol.FunctionType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.info.SupportedFunctions) == 0 {
		return true
	}
	for _, f := range c.info.SupportedFunctions {
		if f == fn {
			return true
		}
	}
	return false
}
