package provision

const formPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>hivemon setup</title>
  </head>
  <body>
    <h1>hivemon setup</h1>
    <form method="POST">
      <label>WiFi SSID:</label><br>
      <input type="text" name="ssid"><br><br>
      <label>WiFi password:</label><br>
      <input type="password" name="wifi_password"><br><br>
      <label>ThingSpeak API key:</label><br>
      <input type="text" name="thingspeak_api"><br><br>
      <label>CallMeBot API key:</label><br>
      <input type="text" name="callmebot_api"><br><br>
      <label>Phone number:</label><br>
      <input type="text" name="phone"><br><br>
      <input type="submit" value="Save">
    </form>
  </body>
</html>
`

const confirmationPage = `<h1>Configuration saved! The node is restarting.</h1>`
