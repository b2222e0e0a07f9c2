package help

const ColdstartYAML = `# chip-gate Quick Start

pipeline:
  gate_0: "Page type: product chips need a product page, health chips need an article"
  cooldown: "URL cooldown (30m after display) and origin dismissal (24h, user initiated)"
  gate_1: "Intent score: product >= 0.85, health >= 0.75"
  gate_2: "Subject: specific product name or health topic, at most 8 words"
  cache: "Recent scan for the same host + subject is attached to READY decisions"

states:
  ready: "Show the chip with the extracted subject"
  needs_confirm: "Show the chip and ask the user to confirm or edit the subject"
  blocked: "Do not show; reason is wrong_page_type, url_cooldown, user_dismissed or low_intent"

commands:
  evaluate: |
    chip-gate evaluate --url "https://shop.example.com/products/acme-blender"

  evaluate_saved_html: |
    chip-gate evaluate --url "https://shop.example.com/p/1" --html-file page.html --chip all

  evaluate_rendered: |
    chip-gate evaluate --url "https://news.example.com/health/story" --render --chip health

  confirm_subject: |
    chip-gate evaluate --url "https://shop.example.com/p/1" --confirm --mark-shown

  dismiss_on_site: |
    chip-gate dismiss --url "https://shop.example.com" --chip product

  unhide_on_site: |
    chip-gate unhide --url "https://shop.example.com" --chip product

  status: |
    chip-gate status --url "https://shop.example.com/p/1"

  clear_cache: |
    chip-gate cache clear --host shop.example.com
    chip-gate cache clear --host shop.example.com --product-only

storage:
  - "--store sqlite (default): chip-gate.db next to the binary, or --store-path"
  - "--store redis: shared state via --redis-addr, password from CHIP_GATE_REDIS_PASSWORD"
  - "--store memory: nothing persists between runs"

config:
  - "--config gates.yaml overlays thresholds, weights, TTLs and term lists on the defaults"
  - "--metrics-file chip-gate.prom writes event counters in Prometheus text format"
`
