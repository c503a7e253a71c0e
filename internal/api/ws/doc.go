/*
Package ws serves the browser shim's websocket at /bridge and implements
host.Bridge over it.

The shim connects once and then answers commands:

	backend -> shim  {"id":"cmd_01H...","method":"tabs.get","tabId":12}
	shim -> backend  {"id":"cmd_01H...","tab":{"id":12,"mutedInfo":{"muted":false}}}

Replies are matched to commands by id. Only one shim connection is active;
a new connection replaces the old one and fails its outstanding commands.
*/
package ws
