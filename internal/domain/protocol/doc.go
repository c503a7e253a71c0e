/*
Package protocol dispatches task-tagged messages from the UI panel and the
in-page handlers.

	{"task": "log", "message": "player found", "level": "debug", "node": "div#player"}
	{"task": "toggleMute", "tabId": 12}
	{"task": "togglePlayer", "tabId": 12}
	{"task": "toggleDebug", "tabId": 12}

log answers true. The toggles answer {"success": bool}. An unknown task
answers {"success": false} and is logged; a task that is not a string is
rejected with ErrTaskNotString.
*/
package protocol
