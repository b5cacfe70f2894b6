package hamqtt

// UniqueID returns the entity's unique id, "<objectID>_<deviceID>". It is resolved from the transport's device the first
// time it is needed and never changes afterward. The empty string is returned while no device is available.
func (e *BaseEntity) UniqueID() string {
	id, _ := e.resolveUniqueID()
	return id
}

func (e *BaseEntity) resolveUniqueID() (string, error) {
	if e.uniqueID != "" {
		return e.uniqueID, nil
	}

	if e.transport == nil {
		return "", ErrNoTransport
	}

	deviceID := e.transport.Device().ID()
	if deviceID == "" {
		return "", ErrNoDevice
	}

	e.uniqueID = e.objectID + "_" + deviceID
	return e.uniqueID, nil
}
