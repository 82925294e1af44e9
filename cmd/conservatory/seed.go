package main

// defaultConfigYAML is written by `conservatory init` as a starting point.
const defaultConfigYAML = `# conservatory configuration
llm:
  provider: gemini        # gemini or openai
  model: gemini-2.0-flash
  # api_key: ...          # or set GEMINI_API_KEY / OPENAI_API_KEY

library:
  memory_capacity: 500
  ttl_days: 90
  watch_dataset: false

cache:
  intent_capacity: 50

logging:
  debug: false
  level: info
`

// starterDatasetYAML seeds the local species library with a handful of
// common community species so the first enrichment runs have stage-1 hits.
const starterDatasetYAML = `species:
  - id: neon-tetra
    common_name: Neon Tetra
    scientific_name: Paracheirodon innesi
    aliases: [neon]
    ph_min: 6.0
    ph_max: 7.0
    temp_min_f: 72
    temp_max_f: 78
    adult_size: 1.5 in
    diet: omnivore
    difficulty: easy

  - id: betta
    common_name: Betta
    scientific_name: Betta splendens
    aliases: [siamese fighting fish]
    ph_min: 6.5
    ph_max: 7.5
    temp_min_f: 76
    temp_max_f: 82
    adult_size: 3 in
    diet: carnivore
    difficulty: easy

  - id: cherry-shrimp
    common_name: Cherry Shrimp
    scientific_name: Neocaridina davidi
    aliases: [neocaridina, rcs]
    ph_min: 6.5
    ph_max: 8.0
    temp_min_f: 65
    temp_max_f: 80
    adult_size: 1.5 in
    diet: omnivore
    difficulty: easy

  - id: java-fern
    common_name: Java Fern
    scientific_name: Microsorum pteropus
    ph_min: 6.0
    ph_max: 7.5
    temp_min_f: 68
    temp_max_f: 82
    difficulty: easy

  - id: crested-gecko
    common_name: Crested Gecko
    scientific_name: Correlophus ciliatus
    aliases: [crestie]
    temp_min_f: 72
    temp_max_f: 78
    adult_size: 8 in
    diet: omnivore
    difficulty: easy
`
