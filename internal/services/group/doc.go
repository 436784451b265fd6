// Package group manages the friend table and locally created groups.
package group
