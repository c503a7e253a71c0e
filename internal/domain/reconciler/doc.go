/*
Package reconciler keeps each tab's stored belief about ad playback in step
with what the classifier observes, and applies or withdraws the mute and
hide actions accordingly.

# States

A tab is either NORMAL or AD_PLAYING. The muted and hidden attribution
flags cut across both and only record what the monitor itself applied.

	NORMAL --[ad-started]--> AD_PLAYING --[ad-completed]--> NORMAL
	                             |
	                             +--[quiet batch after ad timeout]--> NORMAL
	                             +--[quiet batch, no start time]----> NORMAL

A batch carrying both ad-started and ad-completed is treated as a
completion.

# Concurrency

Every operation on a tab holds that tab's lock for the whole
read-act-write sequence, so batches for one tab apply strictly in turn.
Different tabs never wait on each other.

Nothing runs before the store has finished loading; operations return
OutcomeNotReady or false instead.

# Manual toggles

ToggleMute and TogglePlayer flip one attribution flag and leave playingAds
alone. A toggle during an ad can therefore leave the belief out of step
with the player until the next decisive batch or the ad timeout.
*/
package reconciler
