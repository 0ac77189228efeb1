package api

// docsHTML is the /docs page: a route index for the monitor API next to the
// interactive reference rendered from /openapi.json.
const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Network Monitor API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { margin: 0; height: 100vh; display: flex; background: #0d1117; color: #c9d1d9;
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; }
    nav { width: 300px; flex: none; overflow-y: auto; padding: 16px; border-right: 1px solid #30363d; font-size: 12px; }
    nav h1 { font-size: 14px; margin: 0 0 4px; }
    nav h2 { font-size: 11px; text-transform: uppercase; color: #8b949e; margin: 16px 0 6px; }
    nav p { color: #8b949e; margin: 0 0 8px; }
    nav a { color: #58a6ff; text-decoration: none; }
    nav ul { list-style: none; margin: 0; padding: 0; }
    nav li { margin: 3px 0; }
    nav code { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; }
    .m { display: inline-block; width: 52px; font-weight: 600; }
    main { flex: 1; position: relative; }
  </style>
</head>
<body>
  <nav>
    <h1>Network Monitor</h1>
    <p>Records outbound calls to the domains in scope. Records are returned in initiation order.</p>

    <h2>Requests</h2>
    <ul>
      <li><span class="m">GET</span><code>/api/v1/requests</code></li>
      <li><span class="m">GET</span><code>/api/v1/requests/{id}</code></li>
      <li><span class="m">DELETE</span><code>/api/v1/requests</code></li>
    </ul>

    <h2>Monitor</h2>
    <ul>
      <li><span class="m">GET</span><code>/api/v1/monitor</code></li>
      <li><span class="m">POST</span><code>/api/v1/monitor/activate</code></li>
      <li><span class="m">POST</span><code>/api/v1/monitor/deactivate</code></li>
      <li><span class="m">GET</span><code>/api/v1/monitor/domains</code></li>
      <li><span class="m">PUT</span><code>/api/v1/monitor/domains</code></li>
    </ul>

    <h2>Snapshots</h2>
    <ul>
      <li><span class="m">POST</span><code>/api/v1/snapshots</code></li>
      <li><span class="m">GET</span><code>/api/v1/snapshots</code></li>
      <li><span class="m">GET</span><code>/api/v1/snapshots/{snapshot_id}</code></li>
      <li><span class="m">DELETE</span><code>/api/v1/snapshots/{snapshot_id}</code></li>
    </ul>

    <h2>Change feeds</h2>
    <ul>
      <li><span class="m">SSE</span><code>/api/v1/requests/stream</code></li>
      <li><span class="m">WS</span><code>/api/v1/requests/ws</code></li>
    </ul>
    <p>Each feed opens with the current log, then sends one event per log change. <a href="/docs/stream">Feed message format</a></p>

    <h2>OpenAPI</h2>
    <p><a href="/openapi.json">/openapi.json</a></p>
  </nav>
  <main>
    <elements-api
      apiDescriptionUrl="/openapi.json"
      router="hash"
      layout="stacked"
      hideSchemas
      tryItCredentialsPolicy="same-origin"
    />
  </main>
</body>
</html>`
