// secrets.go: credential resolution for loaded settings
package conf

import (
	"fmt"
	"os"

	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/secrets"
)

// resolveSecrets replaces credential fields with their resolved values. A
// *_file setting wins over the inline value, inline values and push URLs
// have ${VAR} references expanded.
func resolveSecrets(s *Settings) error {
	warn := func(msg string) { fmt.Fprintf(os.Stderr, "warning: %s\n", msg) }

	var err error
	if s.ContractStore.APIToken, err = secrets.Resolve(s.ContractStore.APITokenFile, s.ContractStore.APIToken, warn); err != nil {
		return secretError(err, "contractstore.api_token")
	}
	if s.Notifications.MQTT.Password, err = secrets.Resolve(s.Notifications.MQTT.PasswordFile, s.Notifications.MQTT.Password, warn); err != nil {
		return secretError(err, "notifications.mqtt.password")
	}
	if s.State.DSN, err = secrets.Resolve(s.State.DSNFile, s.State.DSN, warn); err != nil {
		return secretError(err, "state.dsn")
	}
	for i, u := range s.Notifications.Push.URLs {
		if s.Notifications.Push.URLs[i], err = secrets.ExpandString(u); err != nil {
			return secretError(err, fmt.Sprintf("notifications.push.urls[%d]", i))
		}
	}
	return nil
}

func secretError(err error, key string) error {
	return errors.New(err).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("setting", key).
		Build()
}
