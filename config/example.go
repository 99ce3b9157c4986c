package config

// ExampleYAML is written to stdout by `rote --generate-example`. It mirrors
// the original rote-mux example configuration fixture: a boolean ensure,
// two plain run tasks, a healthcheck-gated run task with autorestart, a run
// task that depends on it, and an aggregator. It does not use cwd,
// timestamps, a string ensure or a cmd healthcheck.
const ExampleYAML = `# Example rote configuration.
default: demo

tasks:
  setup-task:
    ensure: true

  google-ping:
    run: ping google.com
    display: [stdout]

  cloudflare-ping:
    run: ping 1.1.1.1
    display: [stdout]

  api-server:
    run: ./server --port 8080
    require: [setup-task]
    autorestart: true
    healthcheck:
      tool: "is-port-open 8080"
      interval: 0.5

  api-client:
    run: ./client --target http://127.0.0.1:8080
    require: [api-server]

  demo:
    require:
      - google-ping
      - cloudflare-ping
      - api-client
`
