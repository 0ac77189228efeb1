package api

const streamDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Change Feeds - Network Monitor</title>
  <style>
    body {
      margin: 0;
      padding: 32px 48px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }
    a { color: #58a6ff; text-decoration: none; }
    h1, h2 { color: #f0f6fc; font-weight: 600; }
    code, pre {
      font-family: "SFMono-Regular", Consolas, monospace;
      background: #161b22;
      border: 1px solid #30363d;
      border-radius: 6px;
    }
    code { padding: 1px 5px; }
    pre { padding: 12px 16px; overflow-x: auto; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #30363d; padding: 6px 12px; text-align: left; }
  </style>
</head>
<body>
  <a href="/docs">&larr; REST API</a>
  <h1>Request log change feeds</h1>
  <p>Every change to the request log is pushed to connected clients. Two
  transports carry the same events.</p>

  <h2>Endpoints</h2>
  <table>
    <tr><th>Transport</th><th>URL</th></tr>
    <tr><td>Server-Sent Events</td><td><code>GET /api/v1/requests/stream</code></td></tr>
    <tr><td>WebSocket</td><td><code>GET /api/v1/requests/ws</code></td></tr>
  </table>
  <p>Both accept <code>?kinds=append,update,clear</code> to receive a subset
  of change kinds. The first event on a new connection is always
  <code>snapshot</code>, carrying the full log.</p>

  <h2>Event kinds</h2>
  <table>
    <tr><th>Kind</th><th>Data</th></tr>
    <tr><td><code>snapshot</code></td><td>Array of request records in initiation order.</td></tr>
    <tr><td><code>append</code></td><td>The new pending record.</td></tr>
    <tr><td><code>update</code></td><td>The record after the change.</td></tr>
    <tr><td><code>clear</code></td><td>No record.</td></tr>
  </table>

  <h2>SSE</h2>
  <pre>curl -N 'http://127.0.0.1:8190/api/v1/requests/stream?kinds=update'

event: snapshot
data: []

event: update
data: {"kind":"update","record":{"id":"...","status":"completed", ...}}</pre>

  <h2>WebSocket</h2>
  <p>Each event is one JSON text frame:</p>
  <pre>{"kind":"append","data":{"kind":"append","record":{...}}}</pre>
  <p>Frames sent by the client are ignored. Slow clients lose events rather
  than stall the log; the drop count is reported by
  <code>GET /api/v1/monitor</code> as <code>stream_dropped</code>.</p>
</body>
</html>`
