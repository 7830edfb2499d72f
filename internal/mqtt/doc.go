// Package mqtt bridges the controller to an MQTT broker.
//
// Topics, under the configured prefix (default "easyremote"):
//
//	<prefix>/availability       "online" / "offline" (retained, last will)
//	<prefix>/status/<device>    JSON device state (retained)
//	<prefix>/command/<device>   {"action":"launch","show":"Good Witch"}
//	                            {"action":"power_off"}
//	                            {"action":"volume_up"} / {"action":"volume_down"}
//	                            {"action":"refresh"}
//	                            {"action":"button","button":3}
//
// Commands become scheduler events; they never call the controller
// directly. Broker credentials come from MQTT_USERNAME and MQTT_PASSWORD and
// are never logged.
package mqtt
