/*
Package action issues the side effects the monitor controls: muting a tab
and hiding its video player.

Every call is bounded by a per-call timeout and reports a plain bool. A
missing tab, a user-applied mute, a handler that declines or a host that
never answers all come back as false and an error log line; nothing is
returned to the reconciler as an error or a panic.

# Usage

	gateway := action.New(bridge, 5*time.Second, logger).WithMetrics(metrics)

	if !gateway.Mute(ctx, tabID) {
		// leave the muted attribution flag unchanged
	}
*/
package action
