package config

// DefaultConfigTOML is a complete, commented sample forkexec.toml.
const DefaultConfigTOML = `# forkexec configuration file
# Variables: %(here)s is this file's directory, ${VAR} reads the environment.

[log]
# level = "info"                  # debug, info, warn, error
# format = "auto"                 # json, text, auto (text on a terminal)
# syslog_tag = ""                 # forward child output to syslog under this tag
#                                 # (supports %(program_name)s)
# syslog_priority = "daemon.info" # facility.severity

[spawn]
# directory = ""                  # child working directory (default: inherit)
# clean_environment = false       # start children with only [spawn.environment]
# redirect_stdin = false          # feed child stdin through a pipe instead of inheriting
# redirect_stdout = true
# redirect_stderr = true
# strip_ansi = false              # remove ANSI escape sequences from child output
# strict_exec = false             # fail the run when the program cannot be executed
# nice = 0                        # child nice value (-20..19)
# cpus = ""                       # child CPU affinity, e.g. "0-3,6"
# timeout = ""                    # kill the child after this duration, e.g. "30s"
# stderr_tail = 4096              # bytes of child stderr kept for error reports

# [spawn.environment]
# KEY = "value"

# [spawn.rlimits]
# nofile = "1024:4096"            # soft:hard, a single value, or "unlimited"
# core = "0"

[metrics]
# textfile = ""                   # write Prometheus metrics here after each run
# listen = ""                     # serve /metrics on this address while running

# Webhooks are notified of child lifecycle events:
# CHILD_SPAWNED, CHILD_EXITED, CHILD_FAILED, SPAWN_FAILED.
# [[webhooks]]
# name = "ops"
# url = "https://hooks.example.com/forkexec"
# events = ["CHILD_FAILED", "SPAWN_FAILED"]
# template = "generic"            # generic, slack, pagerduty
# timeout = "5s"
# max_retries = 3
# allow_insecure = false          # permit plain http to non-local hosts
# [webhooks.headers]
# Authorization = "Bearer ${FORKEXEC_WEBHOOK_TOKEN}"
`
