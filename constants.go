package runcshim

// Installation paths. Tests substitute DefaultConfigPath through
// RuntimeLocator's configPath field and DefaultStateDir through
// NewFlagStore's dir argument; the other paths are used as they are.
const (
	DefaultConfigDir            = "/etc/runcshim"
	DefaultConfigPath           = DefaultConfigDir + "/runtime.env"
	DefaultStateDir             = "/var/lib/runcshim/state"
	DefaultCheckpointRoot       = "/var/lib/runcshim/checkpoint"
	DefaultEventListenerPIDFile = "/var/lib/runcshim/event_listener.pid"
)

// Environment variable names, both the ones read from the shim's own
// process environment and the ones read from a container's OCI config env[].
const (
	EnvRealRuntimeCmd = "REAL_RUNTIME_CMD"

	OptInKey          = "RUNC_SHIM_ENABLE"
	SharedFSKey       = "RUNC_SHIM_SHAREDFS_HOST_PATH"
	CheckpointHostKey = "RUNC_SHIM_CHECKPOINT_HOST_PATH"
	WorkdirKey        = "RUNC_SHIM_WORKDIR_CONTAINER_PATH"
)

// DefaultWorkdirInContainer is used when WorkdirKey is absent from a
// container's env.
const DefaultWorkdirInContainer = "/tmp"

// ContainerConfigPathTemplates is the ordered, first-match-wins list of
// config.json locations probed by the Config Reader (C2). %s verbs are
// namespace then container id, in that order.
var ContainerConfigPathTemplates = []string{
	"/run/containerd/io.containerd.runtime.v2.task/%s/%s/config.json",
	"/run/containerd/runc/%s/%s/config.json",
	"/run/runc/%s/%s/config.json",
}
