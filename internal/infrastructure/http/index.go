package http

import "net/http"

// handleIndex renders the chat page. Questions go to POST /ask.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Research Paper Assistant</title>
    <style>
        body { font-family: system-ui, sans-serif; background: #f4f5f7; margin: 0; }
        .container { max-width: 760px; margin: 0 auto; padding: 24px; }
        header h1 { margin-bottom: 4px; }
        .subtitle { color: #666; margin-top: 0; }
        #chat-container { background: #fff; border-radius: 8px; height: 60vh; overflow-y: auto; padding: 16px; }
        .message { padding: 10px 14px; border-radius: 8px; margin: 8px 0; white-space: pre-wrap; }
        .user { background: #dbeafe; margin-left: 20%; }
        .assistant { background: #eef0f3; margin-right: 20%; }
        .error { color: #b91c1c; }
        form { display: flex; gap: 8px; margin-top: 12px; }
        input { flex: 1; padding: 10px; border: 1px solid #ccc; border-radius: 6px; }
        button { padding: 10px 18px; border: 0; border-radius: 6px; background: #2563eb; color: #fff; }
        button:disabled { background: #93c5fd; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Research Paper Assistant</h1>
            <p class="subtitle">Ask about the indexed paper on fair division</p>
        </header>

        <main>
            <div id="chat-container">
                <div id="messages"></div>
            </div>

            <form id="query-form" onsubmit="sendQuestion(event)">
                <input type="text" id="query-input" placeholder="Ask a question..." autocomplete="off" required>
                <button type="submit" id="send-btn">Send</button>
            </form>
        </main>
    </div>

    <script>
        async function sendQuestion(e) {
            e.preventDefault();
            const input = document.getElementById('query-input');
            const button = document.getElementById('send-btn');
            const messages = document.getElementById('messages');
            const container = document.getElementById('chat-container');
            const question = input.value.trim();
            if (!question) return;

            messages.appendChild(bubble('user', question));
            const pending = messages.appendChild(bubble('assistant', 'Thinking...'));
            input.value = '';
            button.disabled = true;
            container.scrollTop = container.scrollHeight;

            try {
                const resp = await fetch('/ask', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({question: question})
                });
                const data = await resp.json();
                pending.textContent = data.answer || data.error || 'No response';
                if (!resp.ok) pending.classList.add('error');
            } catch (err) {
                pending.textContent = 'Connection error';
                pending.classList.add('error');
            } finally {
                button.disabled = false;
                container.scrollTop = container.scrollHeight;
            }
        }

        function bubble(kind, text) {
            const div = document.createElement('div');
            div.className = 'message ' + kind;
            div.textContent = text;
            return div;
        }
    </script>
</body>
</html>`
