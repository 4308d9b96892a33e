package api

const eventsDocsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Event Stream - yt_agent</title>
  <style>
    body {
      margin: 0 auto;
      max-width: 820px;
      padding: 24px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }
    a { color: #58a6ff; text-decoration: none; }
    code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    td, th { border: 1px solid #30363d; padding: 6px 10px; text-align: left; }
  </style>
</head>
<body>
  <p><a href="/docs">&larr; REST API docs</a></p>
  <h1>Event stream</h1>
  <p>
    <code>GET /api/v1/events</code> is a Server-Sent Events stream. Every state
    change of the controller is published as a <code>snapshot</code> event whose
    data is the same JSON document returned by <code>GET /api/v1/view</code>.
    A new subscriber first receives the latest snapshot, so a popup can render
    immediately without polling.
  </p>
  <pre><code>curl -N http://127.0.0.1:8190/api/v1/events

event: snapshot
data: {"phase":"reachable","reachability":"reachable","category":"search_results","view":["form","quantity_options"],"status":"Ready",...}</code></pre>
  <h2>Query parameters</h2>
  <table>
    <tr><th>Name</th><th>Meaning</th></tr>
    <tr><td><code>types</code></td><td>Comma separated event types to receive. Default: all.</td></tr>
  </table>
  <h2>View identifiers</h2>
  <table>
    <tr><th>ID</th><th>Section</th></tr>
    <tr><td><code>form</code></td><td>Download form with the format choice</td></tr>
    <tr><td><code>quantity_options</code></td><td>Number of search results to download</td></tr>
    <tr><td><code>playlist_options</code></td><td>Whole playlist or current video only</td></tr>
    <tr><td><code>server_down</code></td><td>Helper server not running, with the start action</td></tr>
    <tr><td><code>not_youtube_notice</code></td><td>Active tab is not a YouTube page</td></tr>
    <tr><td><code>unsupported_notice</code></td><td>YouTube page that cannot be downloaded</td></tr>
  </table>
  <p>Idle connections receive a <code>: keep-alive</code> comment every 15 seconds.</p>
</body>
</html>`
