// Package userdata defines where installs land on disk: the project's
// install directory, lock file, and host config, and the global profiles
// root. It also routes profile files between a profile's root and its
// nested host directory.
package userdata
