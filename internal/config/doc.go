// Package config manages user-level settings stored at ~/.compkg/config.yaml,
// merged with an optional project-local compkg.yaml. It supplies the registry
// map and the install layout consumed by the resolver and installer.
package config
