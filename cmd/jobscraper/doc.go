// Package main hosts the jobscraper CLI.
//
// Pipeline overview:
//   - discover: loads the company listing (JSON array of company_name objects), walks every company's paginated
//     job board with a bounded errgroup and writes the merged URL list, previous list first, one URL per line.
//   - split: fetches the URL list and writes job_urls_<n>.json chunks of split.chunk_size URLs.
//   - scrape <input> <output>: fetches every URL through the Colly fetcher with at most scrape.concurrency
//     requests in flight, extracts a record per page and writes one result per URL. Failures become
//     {"Reject_Reason": ...} entries; --backup accumulates results across runs.
//   - combine: concatenates every <root>/<prefix>*/*.json array into one file.
//   - upload: replaces the combined file in the configured Drive folder, GCS prefix or local directory, optionally
//     grants one identity access and publishes a Pub/Sub notice.
//
// Operational notes:
//   - Configuration comes from an optional --config file plus JOBSCRAPER_* variables. RAW_URL,
//     JOB_POST_URL_SOURCE and GDRIVE_* are honored for existing deployments.
//   - Every worker pauses for a random delay between scrape.delay_min and scrape.delay_max after each URL while
//     still holding its slot; scrape.host_rps adds an optional per-host token bucket on top.
//   - No request is retried. SIGINT/SIGTERM cancel in-flight work and no partial output is guaranteed.
//   - Metrics are pushed to metrics.pushgateway_url after each command when it is set.
package main
