// Package notify contains status listeners for the security controller.
package notify
