// Package catalog maps shows to the streaming apps that carry them and
// describes how to drive each app with blind keypresses.
//
// An AppProfile holds an app's launch warm-up, its post-launch, shortcut and
// exit recipes, search tuning and confirmation policy. Recipes are lists of
// Steps and can be written as text in the configuration file:
//
//	shows:
//	  - name: Good Witch
//	    app: 12
//	    color: "#FF0000"
//	    recipe: [search]
//	  - name: Hallmark Movies & Mysteries
//	    app: 298229
//	    color: "#008000"
//	    list_position: 4
//	    recipe: ["down*list", select, "wait 1s", select]
//
// Decompose turns a show title into the literal keypresses that type it.
package catalog
