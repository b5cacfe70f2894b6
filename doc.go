// Package hamqtt exposes Home Assistant MQTT entities (sensors, switches, lights, ...) from long-running Go programs.
//
// Every entity embeds a BaseEntity, which owns the parts of the protocol shared by all entity kinds: the entity's
// unique id (derived once from its object id and the device id), the discovery config publish, the per-entity
// availability state machine, and publishing and subscribing on the entity's data topics. Concrete entities live in
// the platform package and only decide which fields go into their discovery document.
//
// Entities never talk to a broker directly. They are handed a Transport when constructed, normally a *Client, which
// turns the begin/write/end publish sequence into a single MQTT publish on an mqtt.Writer:
//
//	client := hamqtt.NewClient(w, s, &hamqtt.Device{UniqueID: "dev42", Name: "Greenhouse"})
//	temp := platform.NewSensor(client, "temp1")
//	temp.Register()
//
//	client.Announce(ctx)
//	temp.SetAvailability(ctx, true)
//	temp.SetValue(ctx, "21.5")
//
// Entity operations never return errors. A publish that cannot happen (no device yet, a topic that cannot be built,
// a disconnected broker, ...) is skipped and the reason is logged at debug level through the log package; callers
// retry by calling the operation again.
package hamqtt
