// Package client implements the catpoint-ctl commands.
//
// Each command connects to the catpoint server, performs one operation
// (arming, sensor management, image upload, recovery), and prints the
// resulting status. Arming changes can be pushed repeatedly until the server
// confirms them.
package client
