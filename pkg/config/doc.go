// Package config loads the email notifier configuration from YAML, fills in
// defaults and validates the SMTP and template settings the notifier consumes.
package config
