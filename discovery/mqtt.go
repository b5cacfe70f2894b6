package discovery

// FieldQoS tells Home Assistant which QoS to use for the entity's subscriptions and commands.
const FieldQoS = "qos"
