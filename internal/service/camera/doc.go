// Package camera watches a folder for camera pictures and uploads every new or
// modified image to the catpoint server for cat detection.
package camera
